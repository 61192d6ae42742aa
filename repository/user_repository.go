package repository

import (
	"genbiapi/config"
	"genbiapi/models"

	"gorm.io/gorm"
)

// UserRepository provides data access operations for application accounts.
type UserRepository interface {
	GetByID(tx *gorm.DB, id uint) (*models.User, error)
	GetByUsername(tx *gorm.DB, username string) (*models.User, error)
	CountByUsername(tx *gorm.DB, username string) (int64, error)
	Create(tx *gorm.DB, user *models.User) error
	UpdatePermissions(tx *gorm.DB, id uint, permissions models.Permissions) error
	GetAll(tx *gorm.DB) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance.
func NewUserRepository() UserRepository {
	return &userRepository{
		db: config.DB,
	}
}

func (r *userRepository) GetByID(tx *gorm.DB, id uint) (*models.User, error) {
	db := tx
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.Table(models.User{}.TableName()).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(tx *gorm.DB, username string) (*models.User, error) {
	db := tx
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.Table(models.User{}.TableName()).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) CountByUsername(tx *gorm.DB, username string) (int64, error) {
	db := tx
	if db == nil {
		db = r.db
	}
	var count int64
	if err := db.Table(models.User{}.TableName()).Where("username = ?", username).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *userRepository) Create(tx *gorm.DB, user *models.User) error {
	db := tx
	if db == nil {
		db = r.db
	}
	return db.Create(user).Error
}

func (r *userRepository) UpdatePermissions(tx *gorm.DB, id uint, permissions models.Permissions) error {
	db := tx
	if db == nil {
		db = r.db
	}
	return db.Model(models.User{}).Where("id = ?", id).Update("permissions", permissions).Error
}

func (r *userRepository) GetAll(tx *gorm.DB) ([]models.User, error) {
	db := tx
	if db == nil {
		db = r.db
	}
	var users []models.User
	if err := db.Table(models.User{}.TableName()).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
