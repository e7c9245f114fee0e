// Package prefs persists client-local state across console runs: the auth
// token and user preferences such as theme, language, the last crawler
// config and table settings. Nothing here is ever sent to the backend.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/crawler-console/internal/config"
	"github.com/JakeFAU/crawler-console/internal/crawler"
	"github.com/JakeFAU/crawler-console/internal/state"
	"github.com/JakeFAU/crawler-console/internal/transport"
)

// Fixed storage keys.
const (
	KeyAuthToken     = "auth_token"
	KeyTheme         = "mediacrawler_theme"
	KeyLanguage      = "mediacrawler_language"
	KeyCrawlerConfig = "mediacrawler_crawler_config"
	KeyTableSettings = "mediacrawler_table_settings"
)

// DefaultLanguage is returned when no language was saved.
const DefaultLanguage = "zh-CN"

// ErrUnknownProvider is returned by Open for an unsupported provider name.
var ErrUnknownProvider = errors.New("unknown prefs provider")

// Store is a small key-value store. Get reports false for missing keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open builds the Store selected by cfg.Provider.
func Open(cfg config.PrefsConfig, logger *zap.Logger) (Store, error) {
	switch strings.ToLower(cfg.Provider) {
	case "badger":
		return NewBadgerStore(cfg.Dir, logger)
	case "redis":
		return NewRedisStore(cfg.RedisAddr, cfg.RedisDB, cfg.RedisPrefix)
	case "memory", "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// TableSettings are the saved result table preferences.
type TableSettings struct {
	PageSize  int               `json:"pageSize"`
	SortField string            `json:"sortField,omitempty"`
	SortOrder crawler.SortOrder `json:"sortOrder,omitempty"`
	Columns   []string          `json:"columns,omitempty"`
}

// Prefs reads and writes typed values under the fixed keys. Values other
// than the token are stored as JSON; unreadable values fall back to defaults
// with a warning.
type Prefs struct {
	store  Store
	logger *zap.Logger
}

// New wraps store.
func New(store Store, logger *zap.Logger) *Prefs {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prefs{store: store, logger: logger.Named("prefs")}
}

// Close closes the underlying store.
func (p *Prefs) Close() error {
	return p.store.Close()
}

// Token returns the saved auth token, or "" when none is saved.
func (p *Prefs) Token(ctx context.Context) (string, error) {
	raw, ok, err := p.store.Get(ctx, KeyAuthToken)
	if err != nil || !ok {
		return "", err
	}
	return string(raw), nil
}

// SetToken saves the auth token. An empty token removes it.
func (p *Prefs) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return p.store.Delete(ctx, KeyAuthToken)
	}
	return p.store.Set(ctx, KeyAuthToken, []byte(token))
}

// TokenSource exposes the saved token to the transport.
func (p *Prefs) TokenSource() transport.TokenSource {
	return transport.TokenFunc(p.Token)
}

// Theme returns the saved theme, defaulting to light.
func (p *Prefs) Theme(ctx context.Context) (state.Theme, error) {
	theme := state.ThemeLight
	if _, err := p.getJSON(ctx, KeyTheme, &theme); err != nil {
		return state.ThemeLight, err
	}
	if theme != state.ThemeLight && theme != state.ThemeDark {
		return state.ThemeLight, nil
	}
	return theme, nil
}

// SetTheme saves the theme.
func (p *Prefs) SetTheme(ctx context.Context, theme state.Theme) error {
	return p.setJSON(ctx, KeyTheme, theme)
}

// Language returns the saved UI language, defaulting to DefaultLanguage.
func (p *Prefs) Language(ctx context.Context) (string, error) {
	lang := DefaultLanguage
	if _, err := p.getJSON(ctx, KeyLanguage, &lang); err != nil {
		return DefaultLanguage, err
	}
	return lang, nil
}

// SetLanguage saves the UI language.
func (p *Prefs) SetLanguage(ctx context.Context, lang string) error {
	return p.setJSON(ctx, KeyLanguage, lang)
}

// CrawlerConfig returns the last saved crawl draft.
func (p *Prefs) CrawlerConfig(ctx context.Context) (crawler.Config, bool, error) {
	var cfg crawler.Config
	ok, err := p.getJSON(ctx, KeyCrawlerConfig, &cfg)
	if err != nil || !ok {
		return crawler.Config{}, false, err
	}
	return cfg, true, nil
}

// SaveCrawlerConfig saves cfg as the last crawl draft.
func (p *Prefs) SaveCrawlerConfig(ctx context.Context, cfg crawler.Config) error {
	return p.setJSON(ctx, KeyCrawlerConfig, cfg)
}

// TableSettings returns the saved table settings or the defaults.
func (p *Prefs) TableSettings(ctx context.Context) (TableSettings, error) {
	ts := TableSettings{
		PageSize:  state.DefaultPageSize,
		SortField: state.DefaultSortField,
		SortOrder: state.DefaultSortOrder,
	}
	if _, err := p.getJSON(ctx, KeyTableSettings, &ts); err != nil {
		return ts, err
	}
	return ts, nil
}

// SetTableSettings saves the table settings.
func (p *Prefs) SetTableSettings(ctx context.Context, ts TableSettings) error {
	return p.setJSON(ctx, KeyTableSettings, ts)
}

// Restore loads saved preferences into the session containers. Table
// settings that were never saved leave the result container untouched.
func (p *Prefs) Restore(ctx context.Context, stores *state.Stores) error {
	theme, err := p.Theme(ctx)
	if err != nil {
		return err
	}
	stores.UI.SetTheme(theme)

	if cfg, ok, err := p.CrawlerConfig(ctx); err != nil {
		return err
	} else if ok {
		stores.Crawler.ApplyConfig(cfg)
	}

	var ts TableSettings
	saved, err := p.getJSON(ctx, KeyTableSettings, &ts)
	if err != nil || !saved {
		return err
	}
	if ts.PageSize > 0 {
		stores.Results.SetPageSize(ts.PageSize)
	}
	if ts.SortField != "" {
		stores.Results.SetSorting(ts.SortField, ts.SortOrder)
	}
	return nil
}

// Persist saves the theme and the result table settings whenever a container
// change alters them. Call it after Restore; values already in the
// containers are not rewritten. The returned func stops persisting.
func (p *Prefs) Persist(ctx context.Context, stores *state.Stores) func() {
	var mu sync.Mutex
	theme := stores.UI.Snapshot().Theme
	table := tableSettingsOf(stores.Results.Snapshot())

	stopUI := stores.UI.Subscribe(func(s state.UISnapshot) {
		mu.Lock()
		defer mu.Unlock()
		if s.Theme == theme {
			return
		}
		if err := p.SetTheme(ctx, s.Theme); err != nil {
			p.logger.Warn("save theme failed", zap.Error(err))
			return
		}
		theme = s.Theme
	})
	stopResults := stores.Results.Subscribe(func(s state.ResultSnapshot) {
		mu.Lock()
		defer mu.Unlock()
		next := tableSettingsOf(s)
		if sameTable(next, table) {
			return
		}
		if err := p.SetTableSettings(ctx, next); err != nil {
			p.logger.Warn("save table settings failed", zap.Error(err))
			return
		}
		table = next
	})
	return func() {
		stopUI()
		stopResults()
	}
}

func tableSettingsOf(s state.ResultSnapshot) TableSettings {
	return TableSettings{PageSize: s.PageSize, SortField: s.Sorting.Field, SortOrder: s.Sorting.Order}
}

func sameTable(a, b TableSettings) bool {
	return a.PageSize == b.PageSize && a.SortField == b.SortField && a.SortOrder == b.SortOrder
}

func (p *Prefs) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok, err := p.store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		p.logger.Warn("ignoring unreadable preference", zap.String("key", key), zap.Error(err))
		return false, nil
	}
	return true, nil
}

func (p *Prefs) setJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := p.store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
