package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ipeterlow/labdopingv2/internal/service"
	"github.com/ipeterlow/labdopingv2/pkg/database"
	"github.com/ipeterlow/labdopingv2/pkg/logger"
)

// Dashboard returns the intake volume series and in-process counts
func Dashboard(c echo.Context) error {
	log := logger.FromContext(c)

	overview, err := service.NewDashboardService(database.GetDB(), labTZ).Overview()
	if err != nil {
		log.Error("Failed to build dashboard", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to build dashboard"})
	}
	return c.JSON(http.StatusOK, overview)
}
