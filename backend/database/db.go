package database

import (
	"github.com/ygtkoc/RMS/backend/config"
	"github.com/ygtkoc/RMS/backend/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init() error {
	var err error
	DB, err = gorm.Open(sqlite.Open(config.C.DatabasePath), &gorm.Config{})
	if err != nil {
		return err
	}
	if err := DB.AutoMigrate(&models.Role{}, &models.User{}, &models.PasswordResetToken{}, &models.LogEntry{}); err != nil {
		return err
	}
	return seedDefaultRole(DB)
}

// seedDefaultRole ensures the baseline role exists so role fallback always
// resolves against a real row.
func seedDefaultRole(db *gorm.DB) error {
	var role models.Role
	err := db.Where("name = ?", models.DefaultRoleName).First(&role).Error
	if err == gorm.ErrRecordNotFound {
		return db.Create(&models.Role{Name: models.DefaultRoleName}).Error
	}
	return err
}
