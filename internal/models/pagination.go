package models

const (
	// DefaultPageSize applies when a list call omits or overshoots the limit.
	DefaultPageSize = 15
	MaxPageSize     = 200
)

// Pagination describes the page of a list response.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
	TotalPages int `json:"totalPages"`
}

// NormalizePage clamps a requested page and size to the accepted range.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}
	return page, pageSize
}

// NewPagination builds the page descriptor for total matching rows.
func NewPagination(page, pageSize, total int) *Pagination {
	page, pageSize = NormalizePage(page, pageSize)
	return &Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
}
