package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ipeterlow/labdopingv2/internal/model"
	"github.com/ipeterlow/labdopingv2/pkg/database"
	"github.com/ipeterlow/labdopingv2/pkg/logger"
	"github.com/ipeterlow/labdopingv2/prometheus"
)

// RoleRequest defines the structure for role creation/update requests.
// PermissionIDs replaces the role's permission set.
type RoleRequest struct {
	Name          string `json:"name"`
	PermissionIDs []uint `json:"permission_ids"`
}

// ListRoles retrieves all roles with their permissions
func ListRoles(c echo.Context) error {
	log := logger.FromContext(c)

	defer prometheus.TrackDBOperation("query")(time.Now())

	var roles []model.Role
	if err := database.GetDB().Preload("Permissions").Order("name").Find(&roles).Error; err != nil {
		log.Error("Failed to retrieve roles", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve roles"})
	}
	return c.JSON(http.StatusOK, echo.Map{"roles": roles})
}

// GetRole retrieves a role by ID with its permissions
func GetRole(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid role ID"})
	}

	var role model.Role
	if err := database.GetDB().Preload("Permissions").First(&role, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Role not found"})
	}
	return c.JSON(http.StatusOK, role)
}

func loadPermissions(ids []uint) ([]model.Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var perms []model.Permission
	err := database.GetDB().Where("id IN ?", ids).Find(&perms).Error
	return perms, err
}

// CreateRole creates a role with the requested permission set
func CreateRole(c echo.Context) error {
	log := logger.FromContext(c)

	var req RoleRequest
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

	var count int64
	database.GetDB().Model(&model.Role{}).Where("name = ?", req.Name).Count(&count)
	if count > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "Role with this name already exists"})
	}

	perms, err := loadPermissions(req.PermissionIDs)
	if err != nil {
		log.Error("Failed to load permissions", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create role"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	role := model.Role{Name: req.Name, Permissions: perms}
	if err := database.GetDB().Create(&role).Error; err != nil {
		log.Error("Failed to create role", zap.String("name", req.Name), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create role"})
	}

	log.Info("Role created", zap.Uint("role_id", role.ID), zap.String("name", role.Name))
	return c.JSON(http.StatusCreated, role)
}

// UpdateRole renames a role and syncs its permission set
func UpdateRole(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := idParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid role ID"})
	}

	var req RoleRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	var role model.Role
	if err := database.GetDB().First(&role, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Role not found"})
	}

	if req.Name != "" && req.Name != role.Name {
		var count int64
		database.GetDB().Model(&model.Role{}).Where("name = ? AND id != ?", req.Name, id).Count(&count)
		if count > 0 {
			return c.JSON(http.StatusConflict, echo.Map{"error": "Role with this name already exists"})
		}
		role.Name = req.Name
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	if err := database.GetDB().Save(&role).Error; err != nil {
		log.Error("Failed to update role", zap.Uint("role_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update role"})
	}

	perms, err := loadPermissions(req.PermissionIDs)
	if err != nil {
		log.Error("Failed to load permissions", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update role"})
	}
	if err := database.GetDB().Model(&role).Association("Permissions").Replace(perms); err != nil {
		log.Error("Failed to sync permissions", zap.Uint("role_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update role"})
	}

	log.Info("Role updated", zap.Uint("role_id", role.ID))
	return c.JSON(http.StatusOK, role)
}

// DeleteRole removes a role. Users holding it lose the attached
// permissions.
func DeleteRole(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := idParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid role ID"})
	}

	var role model.Role
	if err := database.GetDB().First(&role, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Role not found"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	if err := database.GetDB().Select("Permissions").Delete(&role).Error; err != nil {
		log.Error("Failed to delete role", zap.Uint("role_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete role"})
	}

	log.Info("Role deleted", zap.Uint("role_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Role deleted successfully"})
}

// ListPermissions retrieves the full permission catalog
func ListPermissions(c echo.Context) error {
	log := logger.FromContext(c)

	var perms []model.Permission
	if err := database.GetDB().Order("name").Find(&perms).Error; err != nil {
		log.Error("Failed to retrieve permissions", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve permissions"})
	}
	return c.JSON(http.StatusOK, echo.Map{"permissions": perms})
}
