package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ipeterlow/labdopingv2/internal/model"
	"github.com/ipeterlow/labdopingv2/pkg/database"
	"github.com/ipeterlow/labdopingv2/pkg/logger"
	"github.com/ipeterlow/labdopingv2/prometheus"
)

// CompanyRequest defines the structure for company creation/update requests
type CompanyRequest struct {
	Name   string `json:"name"`
	Number string `json:"number"`
	Email  string `json:"email"`
}

// ListCompanies retrieves companies with pagination and an optional
// search over id, name, number and email
func ListCompanies(c echo.Context) error {
	log := logger.FromContext(c)

	page, limit := pageParams(c)
	offset := (page - 1) * limit

	query := database.GetDB().Model(&model.Company{})
	if search := c.QueryParam("search"); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			database.GetDB().Where("CAST(id AS TEXT) LIKE ?", like).
				Or("LOWER(name) LIKE ?", like).
				Or("LOWER(number) LIKE ?", like).
				Or("LOWER(email) LIKE ?", like))
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Error("Failed to count companies", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve companies"})
	}

	var companies []model.Company
	if err := query.Order("name").Offset(offset).Limit(limit).Find(&companies).Error; err != nil {
		log.Error("Failed to retrieve companies", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve companies"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"companies": companies,
		"pagination": echo.Map{
			"current_page": page,
			"limit":        limit,
			"total":        total,
			"total_pages":  (int(total) + limit - 1) / limit,
		},
	})
}

// GetCompany retrieves a company by ID
func GetCompany(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := idParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid company ID"})
	}

	var company model.Company
	if err := database.GetDB().First(&company, id).Error; err != nil {
		log.Warn("Company not found", zap.Uint("company_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Company not found"})
	}
	return c.JSON(http.StatusOK, company)
}

// CreateCompany creates a new client company
func CreateCompany(c echo.Context) error {
	log := logger.FromContext(c)

	var req CompanyRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error":  "validation failed",
			"fields": echo.Map{"name": "required"},
		})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	company := model.Company{Name: req.Name, Number: req.Number, Email: req.Email}
	if err := database.GetDB().Create(&company).Error; err != nil {
		log.Error("Failed to create company", zap.String("name", req.Name), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create company"})
	}

	log.Info("Company created", zap.Uint("company_id", company.ID), zap.String("name", company.Name))
	return c.JSON(http.StatusCreated, company)
}

// UpdateCompany updates an existing company
func UpdateCompany(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := idParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid company ID"})
	}

	var req CompanyRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error":  "validation failed",
			"fields": echo.Map{"name": "required"},
		})
	}

	var company model.Company
	if err := database.GetDB().First(&company, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Company not found"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	company.Name = req.Name
	company.Number = req.Number
	company.Email = req.Email
	if err := database.GetDB().Save(&company).Error; err != nil {
		log.Error("Failed to update company", zap.Uint("company_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update company"})
	}

	log.Info("Company updated", zap.Uint("company_id", company.ID))
	return c.JSON(http.StatusOK, company)
}

// DeleteCompany soft-deletes a company. Companies still referenced by
// live samples cannot be removed.
func DeleteCompany(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := idParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid company ID"})
	}

	var company model.Company
	if err := database.GetDB().First(&company, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Company not found"})
	}

	var sampleCount int64
	if err := database.GetDB().Model(&model.Sample{}).Where("company_id = ?", id).Count(&sampleCount).Error; err != nil {
		log.Error("Failed to check company references", zap.Uint("company_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete company"})
	}
	if sampleCount > 0 {
		log.Warn("Company has samples, refusing delete",
			zap.Uint("company_id", id),
			zap.Int64("samples", sampleCount))
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "Company has registered samples and cannot be deleted",
		})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	if err := database.GetDB().Delete(&company).Error; err != nil {
		log.Error("Failed to delete company", zap.Uint("company_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete company"})
	}

	log.Info("Company deleted", zap.Uint("company_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Company deleted successfully"})
}
