package repository

import (
	"genbiapi/config"

	"gorm.io/gorm"
)

// BaseRepository opens transactions on the application metadata store so
// services can group user-store writes (account creation, permission
// updates) into one atomic unit.
type BaseRepository interface {
	Begin() *gorm.DB
}

type baseRepository struct {
	db *gorm.DB
}

// NewBaseRepository creates a base repository over the metadata store handle.
func NewBaseRepository() BaseRepository {
	return &baseRepository{
		db: config.DB,
	}
}

// Begin starts a transaction. The caller commits or rolls back the returned
// handle; the other repositories accept it as their optional tx argument.
func (r *baseRepository) Begin() *gorm.DB {
	return r.db.Begin()
}
