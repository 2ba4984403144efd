package domain

import (
	"strings"

	"github.com/gosimple/slug"
)

const maxSlugLength = 128

// ValidateSlug rejects empty or non URL-safe slugs.
func ValidateSlug(value string) error {
	value = strings.TrimSpace(value)
	if value == "" || len(value) > maxSlugLength || !slug.IsSlug(value) {
		return ErrInvalidSlug
	}
	return nil
}

// SlugFor derives a slug from a restaurant name.
func SlugFor(restaurant string) string {
	return slug.Make(strings.TrimSpace(restaurant))
}

// ValidateContent checks that every category and item is named.
func ValidateContent(c Content) error {
	for _, category := range c.Categories {
		if strings.TrimSpace(category.Name) == "" {
			return ErrInvalidContent
		}
		for _, item := range category.Items {
			if strings.TrimSpace(item.Name) == "" {
				return ErrInvalidContent
			}
		}
	}
	return nil
}

// CanTransition reports whether from -> to is a forward move.
func CanTransition(from, to State) bool {
	switch from {
	case StateDraft:
		return to == StatePreviewing || to == StatePaid
	case StatePreviewing:
		return to == StatePaid
	default:
		return false
	}
}
