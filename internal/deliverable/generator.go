package deliverable

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/smallbiznis/menusready/internal/config"
	menudomain "github.com/smallbiznis/menusready/internal/menu/domain"
	"github.com/smallbiznis/menusready/internal/providers/pdf"
	"go.uber.org/fx"
)

// Document is the generator input.
type Document struct {
	Restaurant string             `json:"restaurant"`
	Location   string             `json:"location"`
	Content    menudomain.Content `json:"content"`
}

func DocumentFor(m *menudomain.Menu) Document {
	return Document{
		Restaurant: m.Restaurant,
		Location:   m.Location,
		Content:    m.Content.Data(),
	}
}

type Bundle struct {
	Slug              string
	QRCodePNG         []byte
	PrintableDocument []byte
	PlainText         string
	ContentDigest     string
}

func (b *Bundle) Deliverables(generatedAt time.Time) *menudomain.Deliverables {
	return &menudomain.Deliverables{
		Slug:              b.Slug,
		QRCodePNG:         b.QRCodePNG,
		PrintableDocument: b.PrintableDocument,
		PlainText:         b.PlainText,
		ContentDigest:     b.ContentDigest,
		GeneratedAt:       generatedAt,
	}
}

type Params struct {
	fx.In

	Config config.Config
	PDF    pdf.Provider
}

// Generator builds deliverables. Output depends only on the slug, the
// document and the configured app URL.
type Generator struct {
	appURL string
	pdf    pdf.Provider
}

func NewGenerator(p Params) *Generator {
	return New(p.Config.AppURL, p.PDF)
}

func New(appURL string, provider pdf.Provider) *Generator {
	if provider == nil {
		provider = pdf.New()
	}
	return &Generator{appURL: appURL, pdf: provider}
}

func (g *Generator) MenuURL(slug string) string {
	return g.appURL + "/menu/" + slug
}

// Generate renders every artifact. Any failure yields a
// *PartialGenerationError and no bundle.
func (g *Generator) Generate(ctx context.Context, slug string, doc Document) (*Bundle, error) {
	if err := menudomain.ValidateSlug(slug); err != nil {
		return nil, err
	}

	bundle := &Bundle{Slug: slug}
	partial := &PartialGenerationError{}
	record := func(kind Kind, err error) {
		if err != nil {
			partial.Failed = append(partial.Failed, ArtifactError{Kind: kind, Err: err})
			return
		}
		partial.Succeeded = append(partial.Succeeded, kind)
	}

	qrPNG, err := RenderQR(g.MenuURL(slug))
	bundle.QRCodePNG = qrPNG
	record(KindQR, err)

	printable, err := g.renderDocument(ctx, slug, doc)
	bundle.PrintableDocument = printable
	record(KindPDF, err)

	bundle.PlainText = RenderText(doc)
	record(KindText, nil)

	if len(partial.Failed) > 0 {
		return nil, partial
	}

	digest, err := Digest(slug, doc)
	if err != nil {
		return nil, err
	}
	bundle.ContentDigest = digest
	return bundle, nil
}

// Digest is the sha256 of the canonical JSON of the generator input.
func Digest(slug string, doc Document) (string, error) {
	raw, err := json.Marshal(struct {
		Slug string   `json:"slug"`
		Doc  Document `json:"document"`
	}{slug, doc})
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

var Module = fx.Module("deliverable",
	fx.Provide(NewGenerator),
)
