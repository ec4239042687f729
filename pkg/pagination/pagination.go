package pagination

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1
)

// Params holds validated pagination parameters
type Params struct {
	Page     int
	PageSize int
	Offset   int
}

// Parse extracts and validates page/pageSize from query parameters
func Parse(c *gin.Context) Params {
	return Normalize(c.Query("page"), c.Query("pageSize"))
}

// Normalize substitutes defaults for absent or non-numeric values and applies the lower bounds.
// Page size has no upper bound here; DB-backed lists call Capped.
func Normalize(rawPage, rawPageSize string) Params {
	page, err := strconv.Atoi(rawPage)
	if err != nil {
		page = DefaultPage
	}
	pageSize, err := strconv.Atoi(rawPageSize)
	if err != nil {
		pageSize = DefaultPageSize
	}
	return New(page, pageSize)
}

// New clamps already-numeric values. page is bounded so that Offset+PageSize fits in an int.
func New(page, pageSize int) Params {
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < MinPageSize {
		pageSize = MinPageSize
	}
	if maxPage := math.MaxInt / pageSize; page > maxPage {
		page = maxPage
	}

	return Params{
		Page:     page,
		PageSize: pageSize,
		Offset:   (page - 1) * pageSize,
	}
}

// Capped limits the page size to max rows, keeping the page number.
func (p Params) Capped(max int) Params {
	if p.PageSize <= max {
		return p
	}
	return New(p.Page, max)
}

// TotalPages returns the number of pages needed for total rows; never less than 1
func TotalPages(total int64, pageSize int) int {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if total <= 0 {
		return 1
	}
	return int((total-1)/int64(pageSize) + 1)
}
