package crawler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCatalogCoversAllPlatforms(t *testing.T) {
	t.Parallel()

	all := AllPlatforms()
	require.Len(t, all, 7)
	for _, p := range all {
		info, ok := Lookup(p)
		require.True(t, ok)
		require.Equal(t, p, info.ID)
		require.NotEmpty(t, info.SupportedTypes)

		back, ok := PlatformFromAPIName(p.APIName())
		require.True(t, ok)
		require.Equal(t, p, back)
	}
}

func TestParsePlatform(t *testing.T) {
	t.Parallel()

	p, err := ParsePlatform("xhs")
	require.NoError(t, err)
	require.Equal(t, Xiaohongshu, p)

	p, err = ParsePlatform("bilibili")
	require.NoError(t, err)
	require.Equal(t, Bilibili, p)

	_, err = ParsePlatform("myspace")
	require.Error(t, err)
}

func TestLookupReturnsCopy(t *testing.T) {
	t.Parallel()

	info, _ := Lookup(Tieba)
	info.SupportedTypes[0] = TypeVideo
	again, _ := Lookup(Tieba)
	require.Equal(t, TypeSearch, again.SupportedTypes[0])
	require.False(t, again.Supports(TypeVideo))
}

func TestExportFilename(t *testing.T) {
	t.Parallel()

	at := time.UnixMilli(1700000000123)
	require.Equal(t, "results_1700000000123.json", ExportFilename(ExportJSON, at))
	require.Equal(t, "results_1700000000123.csv", ExportFilename(ExportCSV, at))
	require.Equal(t, "results_1700000000123.xlsx", ExportFilename(ExportExcel, at))

	_, err := ParseExportFormat("pdf")
	require.Error(t, err)
}

func TestFormatters(t *testing.T) {
	t.Parallel()

	require.Equal(t, "999", FormatNumber(999))
	require.Equal(t, "1.5K", FormatNumber(1500))
	require.Equal(t, "2.0M", FormatNumber(2_000_000))
	require.Equal(t, "3.1B", FormatNumber(3_100_000_000))
	require.Equal(t, "0%", FormatPercentage(1, 0))
	require.Equal(t, "50.0%", FormatPercentage(1, 2))
	require.Equal(t, "0 B", FormatFileSize(0))
	require.Equal(t, "1.5 KB", FormatFileSize(1536))
	require.Equal(t, "1h 1m 1s", FormatDuration(3661*time.Second))
	require.Equal(t, "2m 5s", FormatDuration(125*time.Second))
	require.Equal(t, "42s", FormatETA(42))
	require.Equal(t, "2m", FormatETA(120))
	require.Equal(t, "abc...", Truncate("abcdef", 3))
	require.Equal(t, "Running", StatusRunning.Label())
}
