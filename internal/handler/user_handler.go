package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ipeterlow/labdopingv2/internal/model"
	"github.com/ipeterlow/labdopingv2/pkg/database"
	"github.com/ipeterlow/labdopingv2/pkg/logger"
	"github.com/ipeterlow/labdopingv2/prometheus"
)

// UserRequest defines the structure for user creation/update requests.
// RoleIDs replaces the user's role set; CurrentTeamID selects the
// company filter applied to client-facing views.
type UserRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	CurrentTeamID *uint  `json:"current_team_id"`
	RoleIDs       []uint `json:"role_ids"`
}

func loadRoles(ids []uint) ([]model.Role, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var roles []model.Role
	err := database.GetDB().Where("id IN ?", ids).Find(&roles).Error
	return roles, err
}

// ListUsers retrieves users with their roles
func ListUsers(c echo.Context) error {
	log := logger.FromContext(c)

	page, limit := pageParams(c)
	offset := (page - 1) * limit

	defer prometheus.TrackDBOperation("query")(time.Now())

	var total int64
	if err := database.GetDB().Model(&model.User{}).Count(&total).Error; err != nil {
		log.Error("Failed to count users", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve users"})
	}

	var users []model.User
	if err := database.GetDB().Preload("Roles").Preload("CurrentTeam").
		Order("name").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		log.Error("Failed to retrieve users", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve users"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"users": users,
		"pagination": echo.Map{
			"current_page": page,
			"limit":        limit,
			"total":        total,
			"total_pages":  (int(total) + limit - 1) / limit,
		},
	})
}

// GetUser retrieves a user by ID with roles
func GetUser(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user ID"})
	}

	var user model.User
	if err := database.GetDB().Preload("Roles").Preload("CurrentTeam").First(&user, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
	}
	return c.JSON(http.StatusOK, user)
}

// CreateUser creates a user with a hashed password and the requested
// role set
func CreateUser(c echo.Context) error {
	log := logger.FromContext(c)

	var req UserRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	fields := echo.Map{}
	if req.Name == "" {
		fields["name"] = "required"
	}
	if req.Email == "" {
		fields["email"] = "required"
	}
	if len(req.Password) < 8 {
		fields["password"] = "must be at least 8 characters"
	}
	if len(fields) > 0 {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "validation failed", "fields": fields})
	}

	var count int64
	database.GetDB().Model(&model.User{}).Where("email = ?", req.Email).Count(&count)
	if count > 0 {
		log.Warn("User with this email already exists", zap.String("email", req.Email))
		return c.JSON(http.StatusConflict, echo.Map{"error": "User with this email already exists"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create user"})
	}

	roles, err := loadRoles(req.RoleIDs)
	if err != nil {
		log.Error("Failed to load roles", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create user"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	user := model.User{
		Name:          req.Name,
		Email:         req.Email,
		Password:      string(hash),
		CurrentTeamID: req.CurrentTeamID,
		Roles:         roles,
	}
	if err := database.GetDB().Create(&user).Error; err != nil {
		log.Error("Failed to create user", zap.String("email", req.Email), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create user"})
	}

	log.Info("User created", zap.Uint("user_id", user.ID), zap.String("email", user.Email))
	return c.JSON(http.StatusCreated, user)
}

// UpdateUser updates a user's profile, role set and current team.
// Password changes only when a new one is supplied.
func UpdateUser(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := idParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user ID"})
	}

	var req UserRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	var user model.User
	if err := database.GetDB().First(&user, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
	}

	if req.Email != "" && req.Email != user.Email {
		var count int64
		database.GetDB().Model(&model.User{}).Where("email = ? AND id != ?", req.Email, id).Count(&count)
		if count > 0 {
			return c.JSON(http.StatusConflict, echo.Map{"error": "User with this email already exists"})
		}
		user.Email = req.Email
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	user.CurrentTeamID = req.CurrentTeamID
	if req.Password != "" {
		if len(req.Password) < 8 {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{
				"error":  "validation failed",
				"fields": echo.Map{"password": "must be at least 8 characters"},
			})
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Error("Failed to hash password", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update user"})
		}
		user.Password = string(hash)
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	if err := database.GetDB().Save(&user).Error; err != nil {
		log.Error("Failed to update user", zap.Uint("user_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update user"})
	}

	roles, err := loadRoles(req.RoleIDs)
	if err != nil {
		log.Error("Failed to load roles", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update user"})
	}
	if err := database.GetDB().Model(&user).Association("Roles").Replace(roles); err != nil {
		log.Error("Failed to sync roles", zap.Uint("user_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update user"})
	}

	log.Info("User updated", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusOK, user)
}

// DeleteUser soft-deletes a user
func DeleteUser(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := idParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user ID"})
	}

	var user model.User
	if err := database.GetDB().First(&user, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	if err := database.GetDB().Delete(&user).Error; err != nil {
		log.Error("Failed to delete user", zap.Uint("user_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete user"})
	}

	log.Info("User deleted", zap.Uint("user_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "User deleted successfully"})
}
