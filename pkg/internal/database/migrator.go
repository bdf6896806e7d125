package database

import (
	"git.solsynth.dev/hypernet/forms/pkg/internal/models"
	"gorm.io/gorm"
)

// AutoMaintainRange lists every table owned by a form.
var AutoMaintainRange = []any{
	&models.Form{},
	&models.FormPermission{},
	&models.Question{},
	&models.Response{},
}

func RunMigration(source *gorm.DB) error {
	if err := source.AutoMigrate(AutoMaintainRange...); err != nil {
		return err
	}

	return nil
}
