package http

import (
	"math"
	"net/http"
	"strconv"

	"github.com/carcompare/compare-webserver/internal/models"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type PaginationInfo struct {
	TotalRows   int64 `json:"total_rows"`
	TotalPages  int   `json:"total_pages"`
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
}

// parsePage reads the "page" and "pageSize" query parameters. It returns nil when
// neither is given, meaning the caller wants every result.
func parsePage(r *http.Request) *models.Page {
	query := r.URL.Query()
	if !query.Has("page") && !query.Has("pageSize") {
		return nil
	}

	page, _ := strconv.Atoi(query.Get("page"))
	if page <= 0 {
		page = 1
	}

	pageSize, _ := strconv.Atoi(query.Get("pageSize"))
	switch {
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	case pageSize <= 0:
		pageSize = DefaultPageSize
	}

	// Keeps (page-1)*pageSize from overflowing; such pages are empty anyway
	if maxPage := math.MaxInt / pageSize; page > maxPage {
		page = maxPage
	}

	return &models.Page{Number: page, Size: pageSize}
}

func newPaginationInfo(page *models.Page, totalRows int64) *PaginationInfo {
	totalPages := 0
	if totalRows > 0 {
		totalPages = int(math.Ceil(float64(totalRows) / float64(page.Size)))
	}

	return &PaginationInfo{
		TotalRows:   totalRows,
		TotalPages:  totalPages,
		CurrentPage: page.Number,
		PageSize:    page.Size,
	}
}
