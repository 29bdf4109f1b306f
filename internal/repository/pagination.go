package repository

const (
	DefaultPage     = 1
	DefaultPageSize = 50
	MaxPageSize     = 200
)

type PageRequest struct {
	Page     int
	PageSize int
}

// PageResult is one page of a newest-first listing.
type PageResult[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// clamp fills in defaults and caps the page size.
func (p PageRequest) clamp() PageRequest {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	switch {
	case p.PageSize < 1:
		p.PageSize = DefaultPageSize
	case p.PageSize > MaxPageSize:
		p.PageSize = MaxPageSize
	}
	return p
}

func (p PageRequest) offset() int {
	return (p.Page - 1) * p.PageSize
}

// pageOf assembles a result for an already clamped request. Items is never nil
// so an empty page encodes as [].
func pageOf[T any](req PageRequest, total int64, items []T) PageResult[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if total > 0 {
		pages = int((total + int64(req.PageSize) - 1) / int64(req.PageSize))
	}
	return PageResult[T]{Items: items, Page: req.Page, PageSize: req.PageSize, Total: total, TotalPages: pages}
}
