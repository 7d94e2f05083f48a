package shared

// Filter carries the paging, ordering and free-text search every list query accepts.
// OrderBy is checked against a per-table whitelist by the persistence layer.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
}

// Paged reports whether both page and page size are set
func (f Filter) Paged() bool {
	return f.Page > 0 && f.PageSize > 0
}

// Offset returns the number of rows to skip for the current page
func (f Filter) Offset() int {
	if !f.Paged() {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}
