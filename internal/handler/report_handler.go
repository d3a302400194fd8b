package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ipeterlow/labdopingv2/internal/middleware"
	"github.com/ipeterlow/labdopingv2/internal/service"
	"github.com/ipeterlow/labdopingv2/pkg/database"
	"github.com/ipeterlow/labdopingv2/pkg/logger"
	"github.com/ipeterlow/labdopingv2/prometheus"
)

// ListReports returns the paginated turnaround report. Users scoped to
// a current team see only their company's samples.
func ListReports(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordSampleOperation("report_list")

	page, limit := pageParams(c)
	companyID := middleware.CurrentTeamID(c)

	items, pagination, err := service.NewReportService(database.GetDB()).
		ListReports(page, limit, c.QueryParam("search"), companyID)
	if err != nil {
		log.Error("Failed to list reports", zap.Error(err))
		if handled, resp := serviceError(c, err); handled {
			return resp
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"reports":    items,
		"pagination": pagination,
	})
}

// GetSampleDetail returns one sample with its measurement record and
// attached documents
func GetSampleDetail(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordSampleOperation("show")

	id, err := idParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid sample ID"})
	}

	detail, err := service.NewReportService(database.GetDB()).Detail(id)
	if err != nil {
		log.Warn("Sample detail lookup failed", zap.Uint("sample_id", id), zap.Error(err))
		if handled, resp := serviceError(c, err); handled {
			return resp
		}
	}
	return c.JSON(http.StatusOK, detail)
}
