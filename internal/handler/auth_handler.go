package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ipeterlow/labdopingv2/internal/model"
	"github.com/ipeterlow/labdopingv2/internal/policy"
	"github.com/ipeterlow/labdopingv2/pkg/database"
	"github.com/ipeterlow/labdopingv2/pkg/jwtutil"
	"github.com/ipeterlow/labdopingv2/pkg/logger"
	"github.com/ipeterlow/labdopingv2/prometheus"
)

// LoginRequest defines the structure for login requests
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and issues a JWT carrying the user's
// identity and current team (company) selection
func Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.AuthAttemptsCounter.Inc()

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var user model.User
	if err := database.GetDB().Where("email = ?", req.Email).First(&user).Error; err != nil {
		log.Warn("Login attempt for unknown email", zap.String("email", req.Email))
		prometheus.AuthErrorsCounter.Inc()
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Warn("Login attempt with wrong password",
			zap.String("email", req.Email),
			zap.Uint("user_id", user.ID))
		prometheus.AuthErrorsCounter.Inc()
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	token, err := jwtutil.GenerateToken(user.ID, user.Email, user.Name, user.CurrentTeamID)
	if err != nil {
		log.Error("Failed to generate token", zap.Uint("user_id", user.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to generate token"})
	}

	permissions, err := policy.PermissionsFor(database.GetDB(), user.ID)
	if err != nil {
		log.Error("Failed to load permissions", zap.Uint("user_id", user.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to load permissions"})
	}

	prometheus.AuthSuccessCounter.Inc()
	log.Info("User logged in",
		zap.Uint("user_id", user.ID),
		zap.String("email", user.Email))

	return c.JSON(http.StatusOK, echo.Map{
		"token": token,
		"user": echo.Map{
			"id":              user.ID,
			"name":            user.Name,
			"email":           user.Email,
			"current_team_id": user.CurrentTeamID,
		},
		"permissions": permissions,
	})
}
