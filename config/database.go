package config

import (
	"fmt"

	"genbiapi/pkg/logger"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// DB is the global GORM handle for the application metadata store holding
// user accounts, permission grants and query history. The BI target
// database is opened separately with raw database/sql and is never
// reachable through this handle.
var DB *gorm.DB

// ConnectDB opens the metadata store with the configured MySQL credentials.
func ConnectDB() error {
	logger.Infof("Connecting to metadata store %s@%s:%d/%s", Cfg.DBUser, Cfg.DBHost, Cfg.DBPort, Cfg.DBName)

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		Cfg.DBUser,
		Cfg.DBPass,
		Cfg.DBHost,
		Cfg.DBPort,
		Cfg.DBName,
	)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Errorf("GORM connection failed: %v", err)
		return err
	}
	logger.Infof("Metadata store connected: %s", Cfg.DBName)

	DB = db
	return nil
}
