package pagination

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type row struct{ id string }

func rows(n int) []*row {
	out := make([]*row, n)
	for i := range out {
		out[i] = &row{id: fmt.Sprintf("%03d", n-i)}
	}
	return out
}

func TestPageSize(t *testing.T) {
	require.Equal(t, DefaultLimit, Pagination{}.PageSize())
	require.Equal(t, 5, Pagination{Limit: 5}.PageSize())
	require.Equal(t, MaxLimit, Pagination{Limit: 10_000}.PageSize())
}

func TestPaginate(t *testing.T) {
	id := func(r *row) string { return r.id }

	page, info := Paginate(rows(3), Pagination{Limit: 5}, id)
	require.Len(t, page, 3)
	require.False(t, info.HasMore)
	require.Empty(t, info.NextCursor)

	page, info = Paginate(rows(6), Pagination{Limit: 5}, id)
	require.Len(t, page, 5)
	require.True(t, info.HasMore)

	cursor, err := DecodeCursor(info.NextCursor)
	require.NoError(t, err)
	require.Equal(t, page[4].id, cursor.ID)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("%%%")
	require.Error(t, err)
}
