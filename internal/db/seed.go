package db

import (
	"errors"

	"gorm.io/gorm"

	"github.com/tarikbs/repairdesk/internal/models"
)

// Seed installs the default authorization profiles and their permissions.
// Idempotent: existing rows are left untouched.
func Seed(db *gorm.DB) error {
	adminPerms, err := ensurePermissions(db, []models.Permission{
		{ResourceType: "*", Action: "*", Description: "Full access"},
	})
	if err != nil {
		return err
	}

	var userPermSpecs []models.Permission
	for _, resource := range []string{"job", "company", "invoice"} {
		for _, action := range []string{"list", "view", "create", "update", "delete"} {
			userPermSpecs = append(userPermSpecs, models.Permission{ResourceType: resource, Action: action})
		}
	}
	userPerms, err := ensurePermissions(db, userPermSpecs)
	if err != nil {
		return err
	}

	if err := ensureProfile(db, "admin", "Full administrative access", adminPerms); err != nil {
		return err
	}
	return ensureProfile(db, "user", "Standard shop account", userPerms)
}

func ensurePermissions(db *gorm.DB, specs []models.Permission) ([]models.Permission, error) {
	out := make([]models.Permission, 0, len(specs))
	for _, spec := range specs {
		var existing models.Permission
		err := db.Where("resource_type = ? AND action = ?", spec.ResourceType, spec.Action).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.Create(&spec).Error; err != nil {
				return nil, err
			}
			out = append(out, spec)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, existing)
	}
	return out, nil
}

func ensureProfile(db *gorm.DB, name, description string, perms []models.Permission) error {
	var existing models.Profile
	err := db.Where("name = ?", name).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		profile := models.Profile{Name: name, Description: description, IsSystem: true, Permissions: perms}
		return db.Create(&profile).Error
	}
	return err
}

// DefaultProfileID returns the id of the standard profile assigned to new
// signups.
func DefaultProfileID(db *gorm.DB) (uint, error) {
	var profile models.Profile
	if err := db.Where("name = ?", "user").First(&profile).Error; err != nil {
		return 0, err
	}
	return profile.ID, nil
}
