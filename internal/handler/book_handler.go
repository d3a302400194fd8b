package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ipeterlow/labdopingv2/internal/export"
	"github.com/ipeterlow/labdopingv2/internal/service"
	"github.com/ipeterlow/labdopingv2/pkg/database"
	"github.com/ipeterlow/labdopingv2/pkg/logger"
	"github.com/ipeterlow/labdopingv2/prometheus"
)

// BookList returns the paginated book view for one sample type. The
// sample type is fixed per route.
func BookList(sampleType string) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)
		prometheus.RecordSampleOperation("book_list")

		page, limit := pageParams(c)
		rows, pagination, err := service.NewReportService(database.GetDB()).
			BookList(sampleType, page, limit, c.QueryParam("search"))
		if err != nil {
			log.Error("Failed to list book rows", zap.String("type", sampleType), zap.Error(err))
			if handled, resp := serviceError(c, err); handled {
				return resp
			}
		}

		return c.JSON(http.StatusOK, echo.Map{
			"rows":       rows,
			"pagination": pagination,
		})
	}
}

// UpdateCharacteristic applies a partial measurement update to one
// characteristic record
func UpdateCharacteristic(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordSampleOperation("update_characteristic")

	id, err := idParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid characteristic ID"})
	}

	var req service.CharacteristicUpdate
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	if err := service.NewCharacteristicService(database.GetDB()).Update(id, req); err != nil {
		log.Warn("Characteristic update failed", zap.Uint("characteristic_id", id), zap.Error(err))
		if handled, resp := serviceError(c, err); handled {
			return resp
		}
	}

	log.Info("Characteristic updated", zap.Uint("characteristic_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Characteristic updated successfully"})
}

// UpdateResults applies a lab-results-only update to one characteristic
// record
func UpdateResults(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordSampleOperation("update_results")

	id, err := idParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid characteristic ID"})
	}

	var req service.ResultsUpdate
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	if err := service.NewCharacteristicService(database.GetDB()).UpdateResults(id, req); err != nil {
		log.Warn("Results update failed", zap.Uint("characteristic_id", id), zap.Error(err))
		if handled, resp := serviceError(c, err); handled {
			return resp
		}
	}

	log.Info("Results updated", zap.Uint("characteristic_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Results updated successfully"})
}

// BookExport streams an xlsx export of one type's book rows over an
// analyzed_at date range (from/to query parameters)
func BookExport(sampleType string) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)
		prometheus.RecordExport("xlsx", sampleType)

		from, errFrom := parseDate(c.QueryParam("from"))
		to, errTo := parseDate(c.QueryParam("to"))
		if errFrom != nil || errTo != nil {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{
				"error":  "validation failed",
				"fields": echo.Map{"range": "from and to dates required (YYYY-MM-DD)"},
			})
		}

		rows, err := service.NewReportService(database.GetDB()).BookExportRows(sampleType, from, to)
		if err != nil {
			log.Error("Failed to load export rows", zap.String("type", sampleType), zap.Error(err))
			if handled, resp := serviceError(c, err); handled {
				return resp
			}
		}

		content, err := export.BookExcel(sampleType, rows)
		if err != nil {
			log.Error("Failed to build export workbook",
				zap.String("type", sampleType),
				zap.Int("rows", len(rows)),
				zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to build export"})
		}

		log.Info("Book exported",
			zap.String("type", sampleType),
			zap.Int("rows", len(rows)))

		filename := export.ExportFilename(sampleType, from, to)
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
		return c.Blob(http.StatusOK,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", content)
	}
}
