package domain

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is a 1-based page of a listing.
type Page struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// Normalize fills in defaults and caps the page size.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset returns the number of rows to skip. The page is expected to be normalized.
func (p Page) Offset() int {
	return (p.Page - 1) * p.PageSize
}
