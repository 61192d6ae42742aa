package bootstrap

import (
	"fmt"

	"genbiapi/config"
	"genbiapi/models"
	"genbiapi/pkg/logger"
	"genbiapi/repository"
	"genbiapi/utils"
)

// LoadData migrates the metadata store and seeds the default admin account.
func LoadData() error {
	logger.Infof("Starting bootstrap data loading...")

	if err := config.DB.AutoMigrate(&models.User{}, &models.QueryHistory{}); err != nil {
		logger.Errorf("Failed to migrate metadata store: %v", err)
		return fmt.Errorf("failed to migrate metadata store: %v", err)
	}

	if err := seedDefaultAdmin(); err != nil {
		return err
	}

	logger.Infof("Bootstrap data loading completed successfully")
	return nil
}

// seedDefaultAdmin creates the wildcard admin account when none exists.
// The initial password must be changed after first login.
func seedDefaultAdmin() error {
	userRepo := repository.NewUserRepository()

	count, err := userRepo.CountByUsername(nil, "admin")
	if err != nil {
		logger.Errorf("Failed to check for admin user: %v", err)
		return fmt.Errorf("failed to check for admin user: %v", err)
	}
	if count > 0 {
		return nil
	}

	admin := &models.User{
		Username:     "admin",
		PasswordHash: utils.HashPassword("admin123"),
		Roles:        []string{"admin"},
		Permissions: models.Permissions{
			Databases: []string{models.Wildcard},
			Tables:    []string{models.Wildcard},
			Columns:   []string{models.Wildcard},
		},
	}
	if err := userRepo.Create(nil, admin); err != nil {
		logger.Errorf("Failed to seed admin user: %v", err)
		return fmt.Errorf("failed to seed admin user: %v", err)
	}

	logger.Warnf("Seeded default admin account with initial password, change it immediately")
	return nil
}
