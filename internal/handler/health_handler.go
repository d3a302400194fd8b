package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ipeterlow/labdopingv2/pkg/database"
)

// HealthCheck reports service and database health
func HealthCheck(c echo.Context) error {
	sqlDB, err := database.GetDB().DB()
	if err != nil || sqlDB.Ping() != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"status":   "unhealthy",
			"database": "down",
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":   "ok",
		"database": "up",
	})
}
