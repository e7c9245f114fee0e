package crawler

// DefaultPageSize is the list page size used when none is configured.
const DefaultPageSize = 20

// PageSizeOptions are the page sizes offered to operators.
var PageSizeOptions = []int{10, 20, 50, 100}

// Pagination is the page/pageSize/total triple of a list view.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total"`
}

// TotalPages returns ceil(total/pageSize), or 0 for an empty or misconfigured
// list.
func (p Pagination) TotalPages() int {
	if p.PageSize <= 0 || p.Total <= 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// LastPage is the highest valid page, never below 1.
func (p Pagination) LastPage() int {
	return max(1, p.TotalPages())
}

// Valid reports whether 1 <= page <= max(1, ceil(total/pageSize)).
func (p Pagination) Valid() bool {
	return p.Page >= 1 && p.Page <= p.LastPage()
}

// Clamp pulls the page back into the valid range.
func (p Pagination) Clamp() Pagination {
	p.Page = min(max(p.Page, 1), p.LastPage())
	return p
}

// HasNext reports whether a later page exists.
func (p Pagination) HasNext() bool {
	return p.Page < p.TotalPages()
}

// HasPrevious reports whether an earlier page exists.
func (p Pagination) HasPrevious() bool {
	return p.Page > 1
}

// Offset is the zero-based index of the first item on the page.
func (p Pagination) Offset() int {
	if p.Page <= 1 || p.PageSize <= 0 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}
