package pdf

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// MenuDocument is the print-ready view of a menu. Prices are already
// formatted by the caller.
type MenuDocument struct {
	Restaurant string
	Location   string
	MenuURL    string
	Sections   []MenuSection
}

type MenuSection struct {
	Name  string
	Lines []MenuLine
}

type MenuLine struct {
	Name        string
	Description string
	Price       string
}

var (
	accent = &props.Color{Red: 232, Green: 40, Blue: 30}
	muted  = &props.Color{Red: 102, Green: 102, Blue: 102}
)

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) RenderMenu(ctx context.Context, doc MenuDocument) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if doc.Restaurant == "" {
		return nil, errors.New("menu document requires a restaurant name")
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		WithLeftMargin(19).
		WithRightMargin(19).
		WithTopMargin(19).
		WithCreationDate(time.Unix(0, 0).UTC()).
		Build()

	m := maroto.New(cfg)

	if doc.MenuURL != "" {
		if err := m.RegisterFooter(
			row.New(30).Add(
				col.New(9).Add(
					text.New("Powered by Menus Ready", props.Text{Size: 8, Top: 12, Color: muted}),
					text.New("menusready.com", props.Text{Size: 8, Top: 16, Color: muted}),
				),
				code.NewQrCol(3, doc.MenuURL, props.Rect{Center: true, Percent: 90}),
			),
		); err != nil {
			return nil, fmt.Errorf("register footer: %w", err)
		}
	}

	m.AddRow(14,
		text.NewCol(12, doc.Restaurant, props.Text{
			Size:  22,
			Style: fontstyle.Bold,
			Align: align.Left,
			Color: accent,
		}),
	)
	m.AddRow(12,
		text.NewCol(12, doc.Location, props.Text{Size: 11, Color: muted}),
	)

	for _, section := range doc.Sections {
		m.AddRow(10,
			text.NewCol(12, strings.ToUpper(section.Name), props.Text{Size: 14, Style: fontstyle.Bold, Top: 2}),
		)
		m.AddRows(line.NewRow(2, props.Line{Color: accent, Thickness: 0.6}))

		for _, item := range section.Lines {
			height := 8.0
			if item.Description != "" {
				height = 13
			}
			content := col.New(10).Add(text.New(item.Name, props.Text{Size: 11, Style: fontstyle.Bold}))
			if item.Description != "" {
				content.Add(text.New(item.Description, props.Text{Size: 9, Top: 5, Color: muted}))
			}
			price := col.New(2)
			if item.Price != "" {
				price = text.NewCol(2, item.Price, props.Text{Size: 11, Style: fontstyle.Bold, Align: align.Right, Color: accent})
			}
			m.AddRow(height, content, price)
		}
		m.AddRow(6, col.New(12))
	}

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate menu pdf: %w", err)
	}
	return out.GetBytes(), nil
}
