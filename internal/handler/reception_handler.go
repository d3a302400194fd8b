package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ipeterlow/labdopingv2/internal/export"
	"github.com/ipeterlow/labdopingv2/internal/middleware"
	"github.com/ipeterlow/labdopingv2/internal/service"
	"github.com/ipeterlow/labdopingv2/pkg/database"
	"github.com/ipeterlow/labdopingv2/pkg/logger"
	"github.com/ipeterlow/labdopingv2/prometheus"
)

// ReceptionRequest defines the structure for intake submissions
type ReceptionRequest struct {
	CompanyID          uint                  `json:"company_id"`
	SentAt             string                `json:"sent_at"`
	ReceivedAt         string                `json:"received_at"`
	Description        string                `json:"description"`
	ShippingType       string                `json:"shipping_type"`
	CustomShippingType string                `json:"custom_shipping_type"`
	Samples            []service.SampleEntry `json:"samples"`
}

// ReceptionUpdateRequest defines the structure for group edits
type ReceptionUpdateRequest struct {
	CompanyID          uint                `json:"company_id"`
	SentAt             string              `json:"sent_at"`
	ReceivedAt         string              `json:"received_at"`
	Description        string              `json:"description"`
	ShippingType       string              `json:"shipping_type"`
	CustomShippingType string              `json:"custom_shipping_type"`
	Samples            []service.SampleRow `json:"samples"`
}

// ListReceptions returns the paginated intake overview
func ListReceptions(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordSampleOperation("list")

	page, limit := pageParams(c)
	items, pagination, err := service.NewReportService(database.GetDB()).
		ListReceptions(page, limit, c.QueryParam("search"))
	if err != nil {
		log.Error("Failed to list receptions", zap.Error(err))
		if handled, resp := serviceError(c, err); handled {
			return resp
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"samples":    items,
		"pagination": pagination,
	})
}

// CreateReception registers a batch of samples as one reception
func CreateReception(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Creating reception")
	prometheus.RecordSampleOperation("create")

	var req ReceptionRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	userID, ok := middleware.UserID(c)
	if !ok {
		log.Error("Failed to get user ID from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	in := service.CreateReceptionInput{
		CompanyID:          req.CompanyID,
		Description:        req.Description,
		ShippingType:       req.ShippingType,
		CustomShippingType: req.CustomShippingType,
		UserID:             userID,
		Samples:            req.Samples,
	}
	if t, err := parseDate(req.SentAt); err == nil {
		in.SentAt = t
	}
	if t, err := parseDate(req.ReceivedAt); err == nil {
		in.ReceivedAt = t
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	result, err := service.NewReceptionService(database.GetDB()).Create(in)
	if err != nil {
		log.Warn("Reception creation failed", zap.Error(err))
		if handled, resp := serviceError(c, err); handled {
			return resp
		}
	}

	log.Info("Reception created",
		zap.Uint("reception_id", result.ReceptionID),
		zap.Int("samples", len(result.SampleIDs)),
		zap.Uint("user_id", userID))
	return c.JSON(http.StatusCreated, result)
}

// GetReceptionGroup returns all samples of one reception
func GetReceptionGroup(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordSampleOperation("show_group")

	receptionID, err := idParam(c, "receptionId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid reception ID"})
	}

	samples, err := service.NewReceptionService(database.GetDB()).Group(receptionID)
	if err != nil {
		log.Warn("Reception group lookup failed", zap.Uint("reception_id", receptionID), zap.Error(err))
		if handled, resp := serviceError(c, err); handled {
			return resp
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reception_id": receptionID,
		"samples":      samples,
	})
}

// UpdateReceptionGroup reconciles a reception group to the submitted
// desired state
func UpdateReceptionGroup(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordSampleOperation("update_group")

	receptionID, err := idParam(c, "receptionId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid reception ID"})
	}

	var req ReceptionUpdateRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	in := service.UpdateReceptionInput{
		CompanyID:          req.CompanyID,
		Description:        req.Description,
		ShippingType:       req.ShippingType,
		CustomShippingType: req.CustomShippingType,
		Samples:            req.Samples,
	}
	if t, err := parseDate(req.SentAt); err == nil {
		in.SentAt = t
	}
	if t, err := parseDate(req.ReceivedAt); err == nil {
		in.ReceivedAt = t
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	if err := service.NewReceptionService(database.GetDB()).Update(receptionID, in); err != nil {
		log.Warn("Reception update failed", zap.Uint("reception_id", receptionID), zap.Error(err))
		if handled, resp := serviceError(c, err); handled {
			return resp
		}
	}

	log.Info("Reception updated", zap.Uint("reception_id", receptionID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Reception updated successfully"})
}

// UpdateSampleStatus sets the workflow status of one sample
func UpdateSampleStatus(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordSampleOperation("update_status")

	id, err := idParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid sample ID"})
	}

	var req struct {
		Status int `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	if err := service.NewReceptionService(database.GetDB()).UpdateStatus(id, req.Status); err != nil {
		log.Warn("Status update failed",
			zap.Uint("sample_id", id),
			zap.Int("status", req.Status),
			zap.Error(err))
		if handled, resp := serviceError(c, err); handled {
			return resp
		}
	}

	log.Info("Sample status updated", zap.Uint("sample_id", id), zap.Int("status", req.Status))
	return c.JSON(http.StatusOK, echo.Map{"message": "Status updated successfully"})
}

// DeleteSample soft-deletes one sample with its characteristic record
func DeleteSample(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordSampleOperation("delete")

	id, err := idParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid sample ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	if err := service.NewReceptionService(database.GetDB()).Delete(id); err != nil {
		log.Warn("Sample delete failed", zap.Uint("sample_id", id), zap.Error(err))
		if handled, resp := serviceError(c, err); handled {
			return resp
		}
	}

	log.Info("Sample deleted", zap.Uint("sample_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Sample deleted successfully"})
}

// ReceptionReceipt streams the intake receipt PDF of one reception
func ReceptionReceipt(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordExport("pdf", "reception")

	receptionID, err := idParam(c, "receptionId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid reception ID"})
	}

	samples, err := service.NewReceptionService(database.GetDB()).Group(receptionID)
	if err != nil {
		if handled, resp := serviceError(c, err); handled {
			return resp
		}
	}
	// Company metadata is shared by the group, load it once
	if len(samples) > 0 {
		if err := database.GetDB().First(&samples[0].Company, samples[0].CompanyID).Error; err != nil {
			log.Error("Failed to load company for receipt",
				zap.Uint("reception_id", receptionID),
				zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to generate receipt"})
		}
	}

	pdf, err := export.ReceptionReceipt(samples)
	if err != nil {
		log.Error("Failed to generate receipt PDF",
			zap.Uint("reception_id", receptionID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to generate receipt"})
	}

	filename := "recepcion-" + strconv.FormatUint(uint64(receptionID), 10) + ".pdf"
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}
