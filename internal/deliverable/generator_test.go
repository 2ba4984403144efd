package deliverable

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"testing"

	menudomain "github.com/smallbiznis/menusready/internal/menu/domain"
	"github.com/stretchr/testify/require"
)

func harborDiner() Document {
	return Document{
		Restaurant: "Harbor Diner",
		Location:   "Portland, ME",
		Content: menudomain.Content{Categories: []menudomain.Category{
			{Name: "Starters", Items: []menudomain.Item{
				{Name: "Clam Chowder", Price: "9.50", Description: "New England style"},
				{Name: "Bread Basket"},
			}},
			{Name: "Mains", Items: []menudomain.Item{
				{Name: "Lobster Roll", Price: "24"},
			}},
		}},
	}
}

func TestRenderTextLayout(t *testing.T) {
	want := "Harbor Diner\n" +
		"Portland, ME\n" +
		"\n==================================================\n\n" +
		"STARTERS\n" +
		"--------\n\n" +
		"Clam Chowder - $9.50\n" +
		"  New England style\n" +
		"\n" +
		"Bread Basket\n" +
		"\n" +
		"\n" +
		"MAINS\n" +
		"-----\n\n" +
		"Lobster Roll - $24.00\n" +
		"\n" +
		"\n" +
		"\n==================================================\n" +
		"\nPowered by Menus Ready\n" +
		"menusready.com\n"

	require.Equal(t, want, RenderText(harborDiner()))
}

func TestGenerateIsDeterministic(t *testing.T) {
	g := New("https://menusready.com", nil)
	ctx := context.Background()

	first, err := g.Generate(ctx, "harbor-diner", harborDiner())
	require.NoError(t, err)
	second, err := g.Generate(ctx, "harbor-diner", harborDiner())
	require.NoError(t, err)

	require.Equal(t, first.QRCodePNG, second.QRCodePNG)
	require.Equal(t, first.PlainText, second.PlainText)
	require.Equal(t, first.ContentDigest, second.ContentDigest)
	require.Equal(t, "https://menusready.com/menu/harbor-diner", g.MenuURL("harbor-diner"))
	require.True(t, bytes.HasPrefix(first.PrintableDocument, []byte("%PDF")))
}

func TestRenderQRCanvas(t *testing.T) {
	raw, err := RenderQR("https://menusready.com/menu/harbor-diner")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, 512, img.Bounds().Dx())
	require.Equal(t, 512, img.Bounds().Dy())

	r, g, b, _ := img.At(0, 0).RGBA()
	require.Equal(t, uint32(0xffff), r&g&b, "quiet zone must be light")

	// The top-left finder pattern starts right after the quiet zone.
	r, _, _, _ = img.At(40, 40).RGBA()
	require.Equal(t, uint32(0x1111), r)
}

func TestMalformedPriceFailsOnlyThePrintableDocument(t *testing.T) {
	doc := harborDiner()
	doc.Content.Categories[1].Items[0].Price = "twenty four"

	bundle, err := New("https://menusready.com", nil).Generate(context.Background(), "harbor-diner", doc)
	require.Nil(t, bundle)

	var partial *PartialGenerationError
	require.True(t, errors.As(err, &partial))
	require.Equal(t, []Kind{KindPDF}, partial.FailedKinds())
	require.Equal(t, []Kind{KindQR, KindText}, partial.Succeeded)
	require.ErrorIs(t, err, ErrMalformedPrice)
}

func TestTextPricesMatchPrintableDocument(t *testing.T) {
	doc := harborDiner()
	doc.Content.Categories[1].Items[0].Price = "$9.5"
	require.Contains(t, RenderText(doc), "Lobster Roll - $9.50\n")

	doc.Content.Categories[1].Items[0].Price = "$twelve"
	text := RenderText(doc)
	require.Contains(t, text, "Lobster Roll - $twelve\n")
	require.NotContains(t, text, "$$")
}

func TestFormatPrice(t *testing.T) {
	cases := map[string]string{
		"":        "",
		"24":      "$24.00",
		"$9.5":    "$9.50",
		"1,250.5": "$1250.50",
	}
	for in, want := range cases {
		got, err := FormatPrice(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	for _, bad := range []string{"abc", "-3", "12..5"} {
		_, err := FormatPrice(bad)
		require.ErrorIs(t, err, ErrMalformedPrice, bad)
	}
}

func TestGenerateRejectsInvalidSlug(t *testing.T) {
	_, err := New("https://menusready.com", nil).Generate(context.Background(), "Not A Slug", harborDiner())
	require.ErrorIs(t, err, menudomain.ErrInvalidSlug)
}
