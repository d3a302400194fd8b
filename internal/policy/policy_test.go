package policy

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ipeterlow/labdopingv2/internal/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Role{}, &model.Permission{}))
	return db
}

func TestSeedCreatesMatrixAndAdminRole(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, Seed(db))

	var permCount int64
	require.NoError(t, db.Model(&model.Permission{}).Count(&permCount).Error)
	assert.Equal(t, int64(len(AllPermissionNames())), permCount)

	var admin model.Role
	require.NoError(t, db.Preload("Permissions").Where("name = ?", AdminRoleName).First(&admin).Error)
	assert.Len(t, admin.Permissions, len(AllPermissionNames()))
}

func TestSeedIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, Seed(db))
	require.NoError(t, Seed(db))

	var permCount int64
	require.NoError(t, db.Model(&model.Permission{}).Count(&permCount).Error)
	assert.Equal(t, int64(len(AllPermissionNames())), permCount)

	var roleCount int64
	require.NoError(t, db.Model(&model.Role{}).Count(&roleCount).Error)
	assert.Equal(t, int64(1), roleCount)
}

func TestHasPermissionThroughRole(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, Seed(db))

	var admin model.Role
	require.NoError(t, db.Where("name = ?", AdminRoleName).First(&admin).Error)

	adminUser := model.User{Name: "Admin", Email: "admin@lab.cl", Password: "x", Roles: []model.Role{admin}}
	require.NoError(t, db.Create(&adminUser).Error)
	plainUser := model.User{Name: "Nadie", Email: "nadie@lab.cl", Password: "x"}
	require.NoError(t, db.Create(&plainUser).Error)

	ok, err := HasPermission(db, adminUser.ID, "dopingsample.create")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = HasPermission(db, plainUser.ID, "dopingsample.create")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = HasPermission(db, adminUser.ID, "nonexistent.permission")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPermissionsForListsAll(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, Seed(db))

	var admin model.Role
	require.NoError(t, db.Where("name = ?", AdminRoleName).First(&admin).Error)
	user := model.User{Name: "Admin", Email: "admin@lab.cl", Password: "x", Roles: []model.Role{admin}}
	require.NoError(t, db.Create(&user).Error)

	names, err := PermissionsFor(db, user.ID)
	require.NoError(t, err)
	assert.Len(t, names, len(AllPermissionNames()))
	assert.Contains(t, names, "bookhairsample.edit")
}
