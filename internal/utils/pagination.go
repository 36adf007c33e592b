package utils

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskmaster/internal/constants"
)

// PaginationParams holds the pagination parameters
type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// NewPaginationParams normalizes a 1-indexed page for a fixed page size
func NewPaginationParams(page, limit int) PaginationParams {
	if page < constants.MinPage {
		page = constants.MinPage
	}
	if limit < 0 {
		limit = 0
	}

	// Saturate instead of wrapping so huge pages stay past the end
	offset := math.MaxInt
	if limit == 0 || page-1 <= math.MaxInt/limit {
		offset = (page - 1) * limit
	}

	return PaginationParams{
		Page:   page,
		Limit:  limit,
		Offset: offset,
	}
}

// GetPage reads the "page" query parameter; anything unparseable or below 1 means page 1
func GetPage(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(constants.MinPage)))
	if err != nil || page < constants.MinPage {
		return constants.MinPage
	}
	return page
}

// TotalPages returns how many pages of size perPage are needed for total items
func TotalPages(total int64, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 0
	}
	pages := int(total) / perPage
	if int(total)%perPage > 0 {
		pages++
	}
	return pages
}
