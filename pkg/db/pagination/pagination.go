package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

var ErrInvalidPageToken = errors.New("invalid_page_token")

// Cursor marks the last row of a page. Rows are ordered by descending
// snowflake id, so the id alone is a stable position.
type Cursor struct {
	ID string `json:"id"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

// Limit clamps a requested page size to [1, MaxPageSize].
func Limit(size int) int {
	switch {
	case size <= 0:
		return DefaultPageSize
	case size > MaxPageSize:
		return MaxPageSize
	default:
		return size
	}
}

func EncodeCursor(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeBefore turns a page token into the exclusive upper id bound.
// An empty token yields zero, meaning no bound.
func DecodeBefore(token string) (int64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, ErrInvalidPageToken
	}
	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return 0, ErrInvalidPageToken
	}
	id, err := strconv.ParseInt(c.ID, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidPageToken
	}
	return id, nil
}

// Page trims the lookahead row fetched past limit and derives the next token.
func Page[T any](rows []T, limit int, id func(T) int64) ([]T, PageInfo) {
	if len(rows) <= limit {
		return rows, PageInfo{}
	}
	rows = rows[:limit]
	info := PageInfo{HasMore: true}
	if token, err := EncodeCursor(Cursor{ID: strconv.FormatInt(id(rows[len(rows)-1]), 10)}); err == nil {
		info.NextPageToken = token
	}
	return rows, info
}
