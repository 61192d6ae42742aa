package repository

import (
	"genbiapi/config"
	"genbiapi/models"

	"gorm.io/gorm"
)

// QueryHistoryRepository provides data access operations for pipeline audit records.
type QueryHistoryRepository interface {
	Create(tx *gorm.DB, entry *models.QueryHistory) error
	GetRecent(tx *gorm.DB, limit int) ([]models.QueryHistory, error)
	GetByUserID(tx *gorm.DB, userID uint, limit int) ([]models.QueryHistory, error)
}

type queryHistoryRepository struct {
	db *gorm.DB
}

// NewQueryHistoryRepository creates a new query history repository instance.
func NewQueryHistoryRepository() QueryHistoryRepository {
	return &queryHistoryRepository{
		db: config.DB,
	}
}

func (r *queryHistoryRepository) Create(tx *gorm.DB, entry *models.QueryHistory) error {
	db := tx
	if db == nil {
		db = r.db
	}
	return db.Create(entry).Error
}

func (r *queryHistoryRepository) GetRecent(tx *gorm.DB, limit int) ([]models.QueryHistory, error) {
	db := tx
	if db == nil {
		db = r.db
	}
	var entries []models.QueryHistory
	if err := db.Table(models.QueryHistory{}.TableName()).
		Order("created_at DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *queryHistoryRepository) GetByUserID(tx *gorm.DB, userID uint, limit int) ([]models.QueryHistory, error) {
	db := tx
	if db == nil {
		db = r.db
	}
	var entries []models.QueryHistory
	if err := db.Table(models.QueryHistory{}.TableName()).
		Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
