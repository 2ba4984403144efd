package deliverable

import (
	"context"
	"fmt"

	"github.com/smallbiznis/menusready/internal/providers/pdf"
)

func (g *Generator) renderDocument(ctx context.Context, slug string, doc Document) ([]byte, error) {
	printable := pdf.MenuDocument{
		Restaurant: doc.Restaurant,
		Location:   doc.Location,
		MenuURL:    g.MenuURL(slug),
	}
	for _, category := range doc.Content.Categories {
		section := pdf.MenuSection{Name: category.Name}
		for _, item := range category.Items {
			price, err := FormatPrice(item.Price)
			if err != nil {
				return nil, fmt.Errorf("%s / %s: %w", category.Name, item.Name, err)
			}
			section.Lines = append(section.Lines, pdf.MenuLine{
				Name:        item.Name,
				Description: item.Description,
				Price:       price,
			})
		}
		printable.Sections = append(printable.Sections, section)
	}
	return g.pdf.RenderMenu(ctx, printable)
}
