package middleware

import (
	"net/http"
	"strings"

	"github.com/ipeterlow/labdopingv2/pkg/jwtutil"
	"github.com/ipeterlow/labdopingv2/pkg/logger"
	"github.com/ipeterlow/labdopingv2/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthMiddleware verifies the JWT token and extracts claims
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		prometheus.AuthAttemptsCounter.Inc()

		tokenString := c.Request().Header.Get("Authorization")
		if tokenString == "" {
			log.Warn("Missing authorization token")
			prometheus.AuthErrorsCounter.Inc()
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		}

		// Remove "Bearer " prefix if present
		if len(tokenString) > 7 && strings.EqualFold(tokenString[0:7], "BEARER ") {
			tokenString = tokenString[7:]
		}

		claims, err := jwtutil.ValidateToken(tokenString)
		if err != nil {
			log.Warn("Invalid token", zap.Error(err))
			prometheus.AuthErrorsCounter.Inc()
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
		}

		prometheus.AuthSuccessCounter.Inc()

		// Store user information in the context
		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)

		// Client users carry a current team (company) filter
		if claims.CurrentTeamID != nil {
			c.Set("current_team_id", *claims.CurrentTeamID)
		}

		log = log.With(
			zap.Uint("user_id", claims.UserID),
			zap.String("email", claims.Email),
		)
		c.Set("logger", log)

		return next(c)
	}
}

// UserID returns the authenticated user id from the context
func UserID(c echo.Context) (uint, bool) {
	id, ok := c.Get("user_id").(uint)
	return id, ok
}

// CurrentTeamID returns the current team (company) filter from the
// context, or nil when the actor is not scoped to a company
func CurrentTeamID(c echo.Context) *uint {
	if id, ok := c.Get("current_team_id").(uint); ok {
		return &id
	}
	return nil
}
