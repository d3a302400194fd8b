package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ipeterlow/labdopingv2/internal/model"
	"github.com/ipeterlow/labdopingv2/internal/policy"
	"github.com/ipeterlow/labdopingv2/pkg/config"
	"github.com/ipeterlow/labdopingv2/pkg/database"
	"github.com/ipeterlow/labdopingv2/prometheus"
)

func TestMain(m *testing.M) {
	prometheus.InitMetrics(&config.Config{Metrics: config.MetricsConfig{Prefix: "test"}})
	os.Exit(m.Run())
}

func setupPermissionDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Role{}, &model.Permission{}))
	require.NoError(t, policy.Seed(db))
	database.SetDB(db)
	return db
}

func invoke(t *testing.T, userID interface{}, permission string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != nil {
		c.Set("user_id", userID)
	}

	handler := RequirePermission(permission)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return rec
}

func TestRequirePermissionAllowsAdmin(t *testing.T) {
	db := setupPermissionDB(t)

	var admin model.Role
	require.NoError(t, db.Where("name = ?", policy.AdminRoleName).First(&admin).Error)
	user := model.User{Name: "Admin", Email: "admin@lab.cl", Password: "x", Roles: []model.Role{admin}}
	require.NoError(t, db.Create(&user).Error)

	rec := invoke(t, user.ID, "dopingsample.create")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequirePermissionDeniesUserWithoutRole(t *testing.T) {
	db := setupPermissionDB(t)

	user := model.User{Name: "Nadie", Email: "nadie@lab.cl", Password: "x"}
	require.NoError(t, db.Create(&user).Error)

	rec := invoke(t, user.ID, "dopingsample.create")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequirePermissionRequiresAuthContext(t *testing.T) {
	setupPermissionDB(t)

	rec := invoke(t, nil, "dopingsample.create")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
