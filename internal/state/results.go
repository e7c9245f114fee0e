package state

import (
	"github.com/JakeFAU/crawler-console/internal/crawler"
)

// Result page defaults.
const (
	DefaultPageSize  = 20
	DefaultSortField = "crawledAt"
	DefaultSortOrder = crawler.SortDesc
)

// Sorting is the result sort draft.
type Sorting struct {
	Field string            `json:"field"`
	Order crawler.SortOrder `json:"order"`
}

// ResultSnapshot is a point-in-time copy of the result container.
type ResultSnapshot struct {
	Version  uint64                `json:"version"`
	Results  []crawler.Result      `json:"results"`
	Selected []string              `json:"selected"`
	Total    int                   `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"pageSize"`
	Filters  crawler.ResultsFilter `json:"filters"`
	Sorting  Sorting               `json:"sorting"`
	Loading  bool                  `json:"loading"`
	Error    string                `json:"error,omitempty"`
}

// Pagination returns the page window of the snapshot.
func (s ResultSnapshot) Pagination() crawler.Pagination {
	return crawler.Pagination{Page: s.Page, PageSize: s.PageSize, Total: s.Total}
}

// IsSelected reports whether id is in the selection.
func (s ResultSnapshot) IsSelected(id string) bool {
	for _, sel := range s.Selected {
		if sel == id {
			return true
		}
	}
	return false
}

// Query returns the list filter with the sort draft applied.
func (s ResultSnapshot) Query() crawler.ResultsFilter {
	f := s.Filters
	if f.SortBy == "" {
		f.SortBy = s.Sorting.Field
	}
	if f.SortOrder == "" {
		f.SortOrder = s.Sorting.Order
	}
	return f
}

func defaultResults() ResultSnapshot {
	return ResultSnapshot{
		Results:  []crawler.Result{},
		Selected: []string{},
		Page:     1,
		PageSize: DefaultPageSize,
		Sorting:  Sorting{Field: DefaultSortField, Order: DefaultSortOrder},
	}
}

func copyResults(s ResultSnapshot, version uint64) ResultSnapshot {
	s.Version = version
	results := make([]crawler.Result, len(s.Results))
	for i, r := range s.Results {
		results[i] = r.Clone()
	}
	s.Results = results
	s.Selected = append([]string{}, s.Selected...)
	s.Filters.MinLikes = cloneIntPtr(s.Filters.MinLikes)
	s.Filters.MaxLikes = cloneIntPtr(s.Filters.MaxLikes)
	return s
}

// ResultStore holds the loaded result page, the selection and the
// pagination and filter drafts.
type ResultStore struct {
	c     *container[ResultSnapshot]
	loads fence
}

// NewResultStore returns an empty store on page 1.
func NewResultStore() *ResultStore {
	return &ResultStore{c: newContainer(defaultResults(), copyResults)}
}

// Snapshot returns a copy of the current state.
func (s *ResultStore) Snapshot() ResultSnapshot { return s.c.snapshot() }

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (s *ResultStore) Subscribe(fn func(ResultSnapshot)) func() {
	return s.c.subscribe(fn)
}

// SetResults replaces the loaded page. Selected ids that are not on the new
// page are dropped.
func (s *ResultStore) SetResults(results []crawler.Result) {
	items := cloneResults(results)
	s.set(func(st *ResultSnapshot) { replaceResults(st, items) })
}

// SetSelected replaces the selection. Ids that are not on the loaded page,
// and repeats, are dropped.
func (s *ResultStore) SetSelected(ids []string) {
	s.set(func(st *ResultSnapshot) {
		loaded := loadedIDs(st.Results)
		kept := make([]string, 0, len(ids))
		for _, id := range ids {
			if _, ok := loaded[id]; ok {
				kept = append(kept, id)
				delete(loaded, id)
			}
		}
		st.Selected = kept
	})
}

// ToggleSelected adds id to the selection or removes it when present. An id
// that is not on the loaded page is ignored.
func (s *ResultStore) ToggleSelected(id string) {
	s.c.mutate(func(st *ResultSnapshot) bool {
		for i, sel := range st.Selected {
			if sel == id {
				st.Selected = append(st.Selected[:i:i], st.Selected[i+1:]...)
				return true
			}
		}
		if _, ok := loadedIDs(st.Results)[id]; !ok {
			return false
		}
		st.Selected = append(st.Selected, id)
		return true
	})
}

// Deselect removes ids from the selection.
func (s *ResultStore) Deselect(ids ...string) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	s.c.mutate(func(st *ResultSnapshot) bool {
		kept := st.Selected[:0:0]
		for _, id := range st.Selected {
			if _, ok := drop[id]; !ok {
				kept = append(kept, id)
			}
		}
		if len(kept) == len(st.Selected) {
			return false
		}
		st.Selected = kept
		return true
	})
}

// ClearSelection empties the selection.
func (s *ResultStore) ClearSelection() {
	s.c.mutate(func(st *ResultSnapshot) bool {
		if len(st.Selected) == 0 {
			return false
		}
		st.Selected = []string{}
		return true
	})
}

// SetTotal sets the server-side result count.
func (s *ResultStore) SetTotal(total int) {
	s.set(func(st *ResultSnapshot) { st.Total = total })
}

// SetPage sets the current page.
func (s *ResultStore) SetPage(page int) {
	s.set(func(st *ResultSnapshot) { st.Page = page })
}

// SetPageSize sets the page size and moves back to page 1.
func (s *ResultStore) SetPageSize(size int) {
	s.set(func(st *ResultSnapshot) {
		st.PageSize = size
		st.Page = 1
	})
}

// SetFilters replaces the filter draft.
func (s *ResultStore) SetFilters(f crawler.ResultsFilter) {
	f.MinLikes = cloneIntPtr(f.MinLikes)
	f.MaxLikes = cloneIntPtr(f.MaxLikes)
	s.set(func(st *ResultSnapshot) { st.Filters = f })
}

// SetSorting sets the sort field and direction.
func (s *ResultStore) SetSorting(field string, order crawler.SortOrder) {
	s.set(func(st *ResultSnapshot) { st.Sorting = Sorting{Field: field, Order: order} })
}

// SetLoading sets the loading flag.
func (s *ResultStore) SetLoading(loading bool) {
	s.set(func(st *ResultSnapshot) { st.Loading = loading })
}

// SetError stores msg; an empty msg clears the error.
func (s *ResultStore) SetError(msg string) {
	s.set(func(st *ResultSnapshot) { st.Error = msg })
}

// BeginLoad marks the store loading and returns the ticket the response must
// present to ApplyPage or FailLoad.
func (s *ResultStore) BeginLoad() Ticket {
	t := s.loads.next()
	s.set(func(st *ResultSnapshot) {
		st.Loading = true
		st.Error = ""
	})
	return t
}

// ApplyPage stores a loaded page if t is still the newest ticket. It reports
// whether the page was applied.
func (s *ResultStore) ApplyPage(t Ticket, page crawler.Page[crawler.Result]) bool {
	items := cloneResults(page.Items)
	return s.c.mutate(func(st *ResultSnapshot) bool {
		if !s.loads.current(t) {
			return false
		}
		replaceResults(st, items)
		st.Total = page.Total
		st.Loading = false
		return true
	})
}

// FailLoad records a failed load if t is still the newest ticket.
func (s *ResultStore) FailLoad(t Ticket, msg string) bool {
	return s.c.mutate(func(st *ResultSnapshot) bool {
		if !s.loads.current(t) {
			return false
		}
		st.Loading = false
		st.Error = msg
		return true
	})
}

func (s *ResultStore) set(fn func(*ResultSnapshot)) {
	s.c.mutate(func(st *ResultSnapshot) bool {
		fn(st)
		return true
	})
}

func replaceResults(st *ResultSnapshot, items []crawler.Result) {
	st.Results = items
	present := loadedIDs(items)
	kept := st.Selected[:0:0]
	for _, id := range st.Selected {
		if _, ok := present[id]; ok {
			kept = append(kept, id)
		}
	}
	st.Selected = kept
}

func loadedIDs(results []crawler.Result) map[string]struct{} {
	ids := make(map[string]struct{}, len(results))
	for _, r := range results {
		ids[r.ID] = struct{}{}
	}
	return ids
}

func cloneResults(in []crawler.Result) []crawler.Result {
	out := make([]crawler.Result, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

func cloneIntPtr(v *int) *int {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}
