package pagination

import (
	"encoding/base64"
	"encoding/json"
)

const (
	DefaultLimit = 10
	MaxLimit     = 250
)

type Pagination struct {
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit"`
}

// PageSize clamps Limit to [1, MaxLimit], defaulting to DefaultLimit.
func (p Pagination) PageSize() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	default:
		return p.Limit
	}
}

// Cursor points at the last row of the previous page.
type Cursor struct {
	ID string `json:"id,omitempty"`
}

type PageInfo struct {
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// EncodeCursor returns an opaque cursor safe for query strings.
func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}

	return &cursor, nil
}

// Paginate trims rows fetched with one extra row past the page size and
// reports whether another page follows. id extracts the cursor key.
func Paginate[T any](rows []*T, p Pagination, id func(*T) string) ([]*T, *PageInfo) {
	size := p.PageSize()
	if len(rows) <= size {
		return rows, &PageInfo{HasMore: false}
	}

	rows = rows[:size]
	next, _ := EncodeCursor(Cursor{ID: id(rows[len(rows)-1])})
	return rows, &PageInfo{HasMore: true, NextCursor: next}
}
