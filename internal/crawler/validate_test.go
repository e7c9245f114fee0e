package crawler

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func validDraft() Config {
	return Config{
		Platforms:   []Platform{Xiaohongshu},
		Keywords:    "test",
		CrawlerType: TypeSearch,
		Limit:       50,
		Priority:    PriorityMedium,
	}
}

func TestConfigValidateAcceptsDraft(t *testing.T) {
	t.Parallel()

	require.NoError(t, validDraft().Validate())
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	five, one := 5, 1
	tests := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"no platforms", func(c *Config) { c.Platforms = nil }, "platforms"},
		{"unknown platform", func(c *Config) { c.Platforms = []Platform{"myspace"} }, "platforms"},
		{"blank keyword", func(c *Config) { c.Keywords = "   " }, "keywords"},
		{"long keyword", func(c *Config) { c.Keywords = strings.Repeat("k", MaxKeywordLength+1) }, "keywords"},
		{"missing type", func(c *Config) { c.CrawlerType = "" }, "crawlerType"},
		{"unsupported type", func(c *Config) { c.CrawlerType = TypeVideo }, "crawlerType"},
		{"zero limit", func(c *Config) { c.Limit = 0 }, "limit"},
		{"limit too high", func(c *Config) { c.Limit = MaxLimit + 1 }, "limit"},
		{"inverted likes", func(c *Config) { c.Filters.MinLikes, c.Filters.MaxLikes = &five, &one }, "filters"},
		{"bad date", func(c *Config) { c.Filters.StartDate = "2024-13-01" }, "filters"},
		{"inverted dates", func(c *Config) {
			c.Filters.StartDate, c.Filters.EndDate = "2024-05-02", "2024-05-01"
		}, "filters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validDraft()
			tt.edit(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrValidation))
			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			_, ok := verrs.Field(tt.field)
			require.True(t, ok, "expected error on %s, got %v", tt.field, verrs)
		})
	}
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	t.Parallel()

	err := Config{}.Validate()
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	for _, field := range []string{"platforms", "keywords", "crawlerType", "limit"} {
		_, ok := verrs.Field(field)
		require.True(t, ok, "missing %s", field)
	}
}

func TestValidDateRange(t *testing.T) {
	t.Parallel()

	require.True(t, ValidDateRange("", ""))
	require.True(t, ValidDateRange("2024-01-01", ""))
	require.True(t, ValidDateRange("2024-01-01", "2024-01-01"))
	require.False(t, ValidDateRange("2024-01-02", "2024-01-01"))
	require.False(t, ValidDateRange("01/02/2024", ""))
}
