package state

import (
	"github.com/JakeFAU/crawler-console/internal/crawler"
)

// Draft defaults restored by ResetConfig.
const (
	DefaultLimit       = 50
	DefaultCrawlerType = crawler.TypeSearch
	DefaultPriority    = crawler.PriorityMedium
)

// CrawlerSnapshot is a point-in-time copy of the crawler config draft.
type CrawlerSnapshot struct {
	Version           uint64                `json:"version"`
	Platforms         []crawler.Platform    `json:"platforms"`
	SelectedPlatforms []crawler.Platform    `json:"selectedPlatforms"`
	Keywords          string                `json:"keywords"`
	CrawlerType       crawler.CrawlerType   `json:"crawlerType"`
	Limit             int                   `json:"limit"`
	Priority          crawler.Priority      `json:"priority"`
	Filters           crawler.FilterOptions `json:"filters"`
	EnableProxy       bool                  `json:"enableProxy"`
	EnableComments    bool                  `json:"enableComments"`
	Loading           bool                  `json:"loading"`
	Error             string                `json:"error,omitempty"`
}

// Draft returns the crawl intent described by the snapshot.
func (s CrawlerSnapshot) Draft() crawler.Config {
	return crawler.Config{
		Platforms:      append([]crawler.Platform(nil), s.SelectedPlatforms...),
		Keywords:       s.Keywords,
		CrawlerType:    s.CrawlerType,
		Limit:          s.Limit,
		Filters:        s.Filters.Clone(),
		Priority:       s.Priority,
		EnableProxy:    s.EnableProxy,
		EnableComments: s.EnableComments,
	}
}

func defaultCrawler() CrawlerSnapshot {
	return CrawlerSnapshot{
		Platforms:         crawler.AllPlatforms(),
		SelectedPlatforms: []crawler.Platform{},
		CrawlerType:       DefaultCrawlerType,
		Limit:             DefaultLimit,
		Priority:          DefaultPriority,
	}
}

func copyCrawler(s CrawlerSnapshot, version uint64) CrawlerSnapshot {
	s.Version = version
	s.Platforms = append([]crawler.Platform(nil), s.Platforms...)
	s.SelectedPlatforms = append([]crawler.Platform{}, s.SelectedPlatforms...)
	s.Filters = s.Filters.Clone()
	return s
}

// CrawlerConfigStore holds the in-progress crawl form.
type CrawlerConfigStore struct {
	c *container[CrawlerSnapshot]
}

// NewCrawlerConfigStore returns a store holding the default draft.
func NewCrawlerConfigStore() *CrawlerConfigStore {
	return &CrawlerConfigStore{c: newContainer(defaultCrawler(), copyCrawler)}
}

// Snapshot returns a copy of the current draft.
func (s *CrawlerConfigStore) Snapshot() CrawlerSnapshot { return s.c.snapshot() }

// Draft returns the current crawl intent.
func (s *CrawlerConfigStore) Draft() crawler.Config { return s.c.snapshot().Draft() }

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (s *CrawlerConfigStore) Subscribe(fn func(CrawlerSnapshot)) func() {
	return s.c.subscribe(fn)
}

// SetPlatforms replaces the list of available platforms.
func (s *CrawlerConfigStore) SetPlatforms(platforms []crawler.Platform) {
	cp := append([]crawler.Platform(nil), platforms...)
	s.set(func(st *CrawlerSnapshot) { st.Platforms = cp })
}

// SetSelectedPlatforms replaces the chosen platforms.
func (s *CrawlerConfigStore) SetSelectedPlatforms(platforms []crawler.Platform) {
	cp := append([]crawler.Platform{}, platforms...)
	s.set(func(st *CrawlerSnapshot) { st.SelectedPlatforms = cp })
}

// SetKeywords sets the search keywords.
func (s *CrawlerConfigStore) SetKeywords(keywords string) {
	s.set(func(st *CrawlerSnapshot) { st.Keywords = keywords })
}

// SetCrawlerType sets the crawl type.
func (s *CrawlerConfigStore) SetCrawlerType(t crawler.CrawlerType) {
	s.set(func(st *CrawlerSnapshot) { st.CrawlerType = t })
}

// SetLimit sets the result limit.
func (s *CrawlerConfigStore) SetLimit(limit int) {
	s.set(func(st *CrawlerSnapshot) { st.Limit = limit })
}

// SetPriority sets the task priority.
func (s *CrawlerConfigStore) SetPriority(p crawler.Priority) {
	s.set(func(st *CrawlerSnapshot) { st.Priority = p })
}

// SetFilters replaces the filter options.
func (s *CrawlerConfigStore) SetFilters(f crawler.FilterOptions) {
	cp := f.Clone()
	s.set(func(st *CrawlerSnapshot) { st.Filters = cp })
}

// SetEnableProxy toggles proxy use.
func (s *CrawlerConfigStore) SetEnableProxy(on bool) {
	s.set(func(st *CrawlerSnapshot) { st.EnableProxy = on })
}

// SetEnableComments toggles comment collection.
func (s *CrawlerConfigStore) SetEnableComments(on bool) {
	s.set(func(st *CrawlerSnapshot) { st.EnableComments = on })
}

// SetLoading sets the loading flag.
func (s *CrawlerConfigStore) SetLoading(loading bool) {
	s.set(func(st *CrawlerSnapshot) { st.Loading = loading })
}

// SetError stores msg; an empty msg clears the error.
func (s *CrawlerConfigStore) SetError(msg string) {
	s.set(func(st *CrawlerSnapshot) { st.Error = msg })
}

// ApplyConfig copies every field of cfg into the draft. The list of
// available platforms and the flags are kept.
func (s *CrawlerConfigStore) ApplyConfig(cfg crawler.Config) {
	cfg = cfg.Clone()
	s.set(func(st *CrawlerSnapshot) {
		st.SelectedPlatforms = append([]crawler.Platform{}, cfg.Platforms...)
		st.Keywords = cfg.Keywords
		st.CrawlerType = cfg.CrawlerType
		st.Limit = cfg.Limit
		st.Priority = cfg.Priority
		st.Filters = cfg.Filters
		st.EnableProxy = cfg.EnableProxy
		st.EnableComments = cfg.EnableComments
	})
}

// ResetConfig restores the default draft.
func (s *CrawlerConfigStore) ResetConfig() {
	s.set(func(st *CrawlerSnapshot) { *st = defaultCrawler() })
}

func (s *CrawlerConfigStore) set(fn func(*CrawlerSnapshot)) {
	s.c.mutate(func(st *CrawlerSnapshot) bool {
		fn(st)
		return true
	})
}
