package deliverable

import (
	"strings"
	"unicode/utf8"

	menudomain "github.com/smallbiznis/menusready/internal/menu/domain"
)

var rule = strings.Repeat("=", 50)

// RenderText produces the paste-friendly plain text menu.
func RenderText(doc Document) string {
	var b strings.Builder
	b.WriteString(doc.Restaurant + "\n")
	b.WriteString(doc.Location + "\n")
	b.WriteString("\n" + rule + "\n\n")

	for _, category := range doc.Content.Categories {
		writeCategory(&b, category)
	}

	b.WriteString("\n" + rule + "\n")
	b.WriteString("\nPowered by Menus Ready\n")
	b.WriteString("menusready.com\n")
	return b.String()
}

func writeCategory(b *strings.Builder, category menudomain.Category) {
	b.WriteString(strings.ToUpper(category.Name) + "\n")
	b.WriteString(strings.Repeat("-", utf8.RuneCountInString(category.Name)) + "\n\n")

	for _, item := range category.Items {
		b.WriteString(item.Name)
		if price := textPrice(item.Price); price != "" {
			b.WriteString(" - " + price)
		}
		b.WriteString("\n")
		if item.Description != "" {
			b.WriteString("  " + item.Description + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// textPrice matches the printable document's price. Unparseable prices are
// printed as entered so the text artifact never fails on them.
func textPrice(raw string) string {
	if formatted, err := FormatPrice(raw); err == nil {
		return formatted
	}
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "$")
	if raw == "" {
		return ""
	}
	return "$" + raw
}
