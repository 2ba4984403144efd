package domain

import "strings"

// Validate checks the metadata before it leaves for the provider and again
// when it comes back.
func (m SessionMetadata) Validate() error {
	if strings.TrimSpace(m.Slug) == "" {
		return ErrInvalidMetadata
	}
	return nil
}

func MetadataFromMap(values map[string]string) SessionMetadata {
	return SessionMetadata{Slug: strings.TrimSpace(values["slug"])}
}

func (m SessionMetadata) Map() map[string]string {
	return map[string]string{"slug": m.Slug}
}
