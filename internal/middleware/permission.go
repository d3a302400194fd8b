package middleware

import (
	"net/http"

	"github.com/ipeterlow/labdopingv2/internal/policy"
	"github.com/ipeterlow/labdopingv2/pkg/database"
	"github.com/ipeterlow/labdopingv2/pkg/logger"
	"github.com/ipeterlow/labdopingv2/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequirePermission gates a route behind a "<resource>.<action>"
// permission. PermissionDenied is signaled distinctly from NotFound: the
// gated operation never begins.
func RequirePermission(name string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			userID, ok := UserID(c)
			if !ok {
				log.Warn("Missing user context for permission check", zap.String("permission", name))
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}

			allowed, err := policy.HasPermission(database.GetDB(), userID, name)
			if err != nil {
				log.Error("Permission check failed", zap.String("permission", name), zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "permission check failed"})
			}
			if !allowed {
				log.Warn("Permission denied",
					zap.Uint("user_id", userID),
					zap.String("permission", name))
				prometheus.PermissionDeniedCounter.Inc()
				return c.JSON(http.StatusForbidden, echo.Map{"error": "permission denied"})
			}

			return next(c)
		}
	}
}
