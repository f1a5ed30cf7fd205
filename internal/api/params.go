package api

import (
	"strconv"
	"time"

	"inventory-service/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	dateLayout      = "2006-01-02"
)

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, models.NewValidationError(name, "must be a positive integer")
	}
	return id, nil
}

func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, models.NewValidationError(name, "must be an integer")
	}
	return n, nil
}

// pageParams reads page and limit, page >= 1 and limit in [1, 100]
func pageParams(c *gin.Context) (models.Page, error) {
	number, err := queryInt(c, "page", 1)
	if err != nil {
		return models.Page{}, err
	}
	size, err := queryInt(c, "limit", defaultPageSize)
	if err != nil {
		return models.Page{}, err
	}

	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return models.Page{Number: number, Size: size}, nil
}

func queryDate(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, models.NewValidationError(name, "must be a YYYY-MM-DD date")
	}
	return &t, nil
}

// reportFilter reads startDate, endDate and customerId
func reportFilter(c *gin.Context) (models.ReportFilter, error) {
	var filter models.ReportFilter
	var err error

	if filter.StartDate, err = queryDate(c, "startDate"); err != nil {
		return filter, err
	}
	if filter.EndDate, err = queryDate(c, "endDate"); err != nil {
		return filter, err
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return filter, models.NewValidationError("endDate", "must not be before startDate")
	}

	if raw := c.Query("customerId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return filter, models.NewValidationError("customerId", "must be a positive integer")
		}
		filter.CustomerID = &id
	}
	return filter, nil
}
