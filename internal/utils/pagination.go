package utils

import (
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
	defaultSortField = "created_at"
)

const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// PaginationParams selects one page of a listing. Filters belong to the
// listing's own parameter struct.
type PaginationParams struct {
	Page      int    `json:"page"`
	Limit     int    `json:"limit"`
	Sort      string `json:"sort"`
	Direction string `json:"direction"`
}

type PaginationResult struct {
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"total_pages"`
	Data       interface{} `json:"data"`
}

// Normalized replaces out of range values with defaults: page 1, limit 20
// (at most 100), sort created_at, direction desc.
func (p PaginationParams) Normalized() PaginationParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 || p.Limit > MaxPageLimit {
		p.Limit = DefaultPageLimit
	}
	if p.Sort == "" {
		p.Sort = defaultSortField
	}
	p.Direction = strings.ToLower(p.Direction)
	if p.Direction != SortAsc && p.Direction != SortDesc {
		p.Direction = SortDesc
	}
	return p
}

func (p PaginationParams) Offset() int {
	p = p.Normalized()
	return (p.Page - 1) * p.Limit
}

// GetPaginationParams reads page, limit, sort and direction from the query.
func GetPaginationParams(c *gin.Context) PaginationParams {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	return PaginationParams{
		Page:      page,
		Limit:     limit,
		Sort:      c.Query("sort"),
		Direction: c.Query("direction"),
	}.Normalized()
}

func ApplyPagination(db *gorm.DB, params PaginationParams) *gorm.DB {
	params = params.Normalized()
	return db.Offset(params.Offset()).Limit(params.Limit)
}

// ApplySort orders by params.Sort when it is one of allowedSortFields and by
// created_at otherwise. Column names never come from the request verbatim.
func ApplySort(db *gorm.DB, params PaginationParams, allowedSortFields []string) *gorm.DB {
	params = params.Normalized()

	sortField := defaultSortField
	for _, field := range allowedSortFields {
		if field == params.Sort {
			sortField = field
			break
		}
	}

	return db.Order(clause.OrderByColumn{
		Column: clause.Column{Name: sortField},
		Desc:   params.Direction == SortDesc,
	})
}

func CreatePaginationResult(data interface{}, total int64, params PaginationParams) PaginationResult {
	params = params.Normalized()
	totalPages := int(math.Ceil(float64(total) / float64(params.Limit)))

	return PaginationResult{
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: totalPages,
		Data:       data,
	}
}

func SetPaginationHeaders(c *gin.Context, result PaginationResult) {
	c.Header("X-Total-Count", strconv.FormatInt(result.Total, 10))
	c.Header("X-Page", strconv.Itoa(result.Page))
	c.Header("X-Per-Page", strconv.Itoa(result.Limit))
	c.Header("X-Total-Pages", strconv.Itoa(result.TotalPages))
}
