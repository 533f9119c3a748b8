// internal/api/types/response.go
package types

// PaginatedResponse wraps a page of results with its paging window, as
// returned by the statement endpoint (a page of ledger entries plus the
// account's total entry count). T is the element type of the page.
type PaginatedResponse[T any] struct {
	Data       []T   `json:"data"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	TotalCount int64 `json:"total_count"`
}
