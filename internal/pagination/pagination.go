// Package pagination contains the page arithmetic shared by the storage backends.
package pagination

import (
	"math"

	"github.com/patric-chuzhbe/todoapi/internal/models"
)

// TotalPages returns ceil(totalEntries / pageSize). pageSize must be positive.
func TotalPages(totalEntries int64, pageSize int) int64 {
	size := int64(pageSize)
	pages := totalEntries / size
	if totalEntries%size > 0 {
		pages++
	}

	return pages
}

// Offset returns the number of entries to skip; non-positive pages start at 0.
// Offsets beyond the int64 range saturate at math.MaxInt64.
func Offset(page, pageSize int) int64 {
	if page <= 0 || pageSize <= 0 {
		return 0
	}

	pagesBefore := int64(page) - 1
	if pagesBefore > math.MaxInt64/int64(pageSize) {
		return math.MaxInt64
	}

	return pagesBefore * int64(pageSize)
}

// NewPageInfo builds the page description of a listing.
func NewPageInfo(request models.PageRequest, totalEntries int64) models.PageInfo {
	return models.PageInfo{
		Page:         request.Page,
		PageSize:     request.PageSize,
		TotalPages:   TotalPages(totalEntries, request.PageSize),
		TotalEntries: totalEntries,
	}
}

// Validate checks that the request can be paginated.
func Validate(request models.PageRequest) error {
	if request.PageSize <= 0 {
		return models.NewTodoDBError(models.MsgInvalidPageSize)
	}

	return nil
}
