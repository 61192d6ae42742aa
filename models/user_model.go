package models

import "time"

// User maps to the users table holding application accounts and their
// permission grants. Passwords are stored as SHA-256 hex digests.
type User struct {
	ID           uint        `gorm:"primaryKey;column:id" json:"id"`
	Username     string      `gorm:"column:username;uniqueIndex;size:64" json:"username"`
	PasswordHash string      `gorm:"column:password_hash;size:64" json:"-"`
	Roles        []string    `gorm:"column:roles;serializer:json" json:"roles"`
	Permissions  Permissions `gorm:"column:permissions;serializer:json" json:"permissions"`

	// Optional dedicated target-database account for connection-scoped
	// execution. Accounts without one depend on the shared fallback.
	DBUser     string `gorm:"column:db_user;size:64" json:"db_user,omitempty"`
	DBPassword string `gorm:"column:db_password;size:128" json:"-"`
	CreatedAt    time.Time   `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"column:updated_at" json:"updated_at"`
}

// TableName returns the database table name for User model.
func (User) TableName() string {
	return "users"
}
