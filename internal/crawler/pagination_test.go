package crawler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPaginationBounds(t *testing.T) {
	t.Parallel()

	p := Pagination{Page: 1, PageSize: 20, Total: 0}
	require.Equal(t, 0, p.TotalPages())
	require.Equal(t, 1, p.LastPage())
	require.True(t, p.Valid())
	require.False(t, p.HasNext())
	require.False(t, p.HasPrevious())

	p = Pagination{Page: 3, PageSize: 20, Total: 41}
	require.Equal(t, 3, p.TotalPages())
	require.True(t, p.Valid())
	require.False(t, p.HasNext())
	require.True(t, p.HasPrevious())
	require.Equal(t, 40, p.Offset())

	p.Page = 4
	require.False(t, p.Valid())
	require.Equal(t, 3, p.Clamp().Page)

	p.Page = 0
	require.Equal(t, 1, p.Clamp().Page)
}

func TestPaginationClampAlwaysValid(t *testing.T) {
	t.Parallel()

	for total := 0; total < 120; total += 7 {
		for _, size := range PageSizeOptions {
			for page := -2; page < 15; page++ {
				p := Pagination{Page: page, PageSize: size, Total: total}.Clamp()
				require.True(t, p.Valid(), "%+v", p)
			}
		}
	}
}
