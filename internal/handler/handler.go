package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ipeterlow/labdopingv2/internal/service"
	"github.com/ipeterlow/labdopingv2/internal/storage"
)

// Package-level wiring set once from main before routes are served
var (
	blobStore storage.Store
	labTZ     *time.Location
)

// Init wires the handlers' shared dependencies: the document blob store
// and the lab-local timezone
func Init(store storage.Store, loc *time.Location) {
	blobStore = store
	labTZ = loc
}

// serviceError maps the service-layer sentinel errors to JSON
// responses. Returns false when err is nil.
func serviceError(c echo.Context, err error) (bool, error) {
	if err == nil {
		return false, nil
	}
	var validation *service.ValidationError
	switch {
	case errors.As(err, &validation):
		return true, c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error":  "validation failed",
			"fields": validation.Fields,
		})
	case errors.Is(err, service.ErrNotFound):
		return true, c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, service.ErrConflict):
		return true, c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	case errors.Is(err, service.ErrStorage):
		return true, c.JSON(http.StatusBadGateway, echo.Map{"error": "storage unavailable"})
	}
	return true, c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// idParam parses the :id path parameter
func idParam(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// pageParams parses the page/limit listing query parameters
func pageParams(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page <= 0 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 100 {
		limit = 15
	}
	return page, limit
}

// parseDate accepts 2006-01-02 or RFC3339 timestamps
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
