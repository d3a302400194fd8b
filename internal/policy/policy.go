package policy

import (
	"gorm.io/gorm"

	"github.com/ipeterlow/labdopingv2/internal/model"
)

// HasPermission reports whether the user holds the named permission
// through any of their roles. Permission names follow the
// "<resource>.<action>" convention.
func HasPermission(db *gorm.DB, userID uint, name string) (bool, error) {
	var count int64
	err := db.Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN user_roles ON user_roles.role_id = role_permissions.role_id").
		Where("user_roles.user_id = ? AND permissions.name = ?", userID, name).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// PermissionsFor returns all permission names held by the user
func PermissionsFor(db *gorm.DB, userID uint) ([]string, error) {
	var names []string
	err := db.Table("permissions").
		Select("DISTINCT permissions.name").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN user_roles ON user_roles.role_id = role_permissions.role_id").
		Where("user_roles.user_id = ?", userID).
		Order("permissions.name").
		Pluck("permissions.name", &names).Error
	return names, err
}

// resources with the standard index/show/create/edit/destroy action set
var resources = []string{
	"dopingsample",
	"reportsample",
	"sample",
	"bookurinesample",
	"bookhairsample",
	"booksalivasample",
	"company",
	"users",
	"roles",
	"permissions",
}

var actions = []string{"index", "show", "create", "edit", "destroy"}

// AllPermissionNames returns the full route permission matrix
func AllPermissionNames() []string {
	names := make([]string, 0, len(resources)*len(actions))
	for _, r := range resources {
		for _, a := range actions {
			names = append(names, r+"."+a)
		}
	}
	return names
}

// AdminRoleName is granted every permission by Seed
const AdminRoleName = "Administrador"

// Seed creates the permission matrix and an administrator role holding
// all of it. Idempotent: existing rows are reused.
func Seed(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		perms := make([]model.Permission, 0, len(resources)*len(actions))
		for _, name := range AllPermissionNames() {
			var perm model.Permission
			if err := tx.Where(model.Permission{Name: name}).FirstOrCreate(&perm).Error; err != nil {
				return err
			}
			perms = append(perms, perm)
		}

		var admin model.Role
		if err := tx.Where(model.Role{Name: AdminRoleName}).FirstOrCreate(&admin).Error; err != nil {
			return err
		}
		return tx.Model(&admin).Association("Permissions").Replace(perms)
	})
}
