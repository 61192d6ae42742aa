// Package auth implements the principal store and bearer-token sessions.
package auth

import (
	"fmt"

	"genbiapi/models"
	"genbiapi/pkg/logger"
	"genbiapi/repository"
	"genbiapi/utils"

	"gorm.io/gorm"
)

// AuthService authenticates credentials against the user store and manages
// bearer-token sessions holding the authenticated principal.
type AuthService interface {
	Authenticate(username, password string) (*models.Principal, string, error)
	ResolveToken(token string) (*models.Principal, bool)
	Logout(token string)
	CreateUser(username, password string, roles []string, permissions models.Permissions, dbUser, dbPassword string) (*models.User, error)
	UpdatePermissions(userID uint, permissions models.Permissions) error
	ListUsers() ([]models.User, error)
}

type authService struct {
	baseRepo repository.BaseRepository
	userRepo repository.UserRepository
	sessions *SessionStore
}

// NewAuthService creates a new auth service instance.
func NewAuthService(sessions *SessionStore) AuthService {
	return &authService{
		baseRepo: repository.NewBaseRepository(),
		userRepo: repository.NewUserRepository(),
		sessions: sessions,
	}
}

// Authenticate verifies the credentials and, on success, opens a session
// and returns the principal plus its bearer token. The principal's
// permission set is loaded once here and never mutated afterwards.
func (s *authService) Authenticate(username, password string) (*models.Principal, string, error) {
	user, err := s.userRepo.GetByUsername(nil, username)
	if err != nil {
		logger.Warnf("Authentication failed for %s: %v", username, err)
		return nil, "", fmt.Errorf("invalid credentials")
	}
	if user.PasswordHash != utils.HashPassword(password) {
		logger.Warnf("Authentication failed for %s: password mismatch", username)
		return nil, "", fmt.Errorf("invalid credentials")
	}

	principal := &models.Principal{
		UserID:      user.ID,
		Username:    user.Username,
		Roles:       user.Roles,
		Permissions: user.Permissions,
		DBUser:      user.DBUser,
		DBPassword:  user.DBPassword,
	}

	token, err := s.sessions.Open(principal)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open session: %w", err)
	}

	logger.Infof("User %s authenticated", username)
	return principal, token, nil
}

// ResolveToken returns the principal bound to a live session token.
func (s *authService) ResolveToken(token string) (*models.Principal, bool) {
	return s.sessions.Resolve(token)
}

// Logout closes the session for the token, if any.
func (s *authService) Logout(token string) {
	s.sessions.Close(token)
}

// CreateUser adds a new account with the given roles and permission grants.
// dbUser and dbPassword are optional; when set, queries for this account run
// under that target-database login instead of the shared fallback.
func (s *authService) CreateUser(username, password string, roles []string, permissions models.Permissions, dbUser, dbPassword string) (*models.User, error) {
	if err := validateGrants(permissions); err != nil {
		return nil, err
	}

	tx := s.baseRepo.Begin()

	count, err := s.userRepo.CountByUsername(tx, username)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to check username %s: %w", username, err)
	}
	if count > 0 {
		tx.Rollback()
		return nil, fmt.Errorf("user %s already exists", username)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: utils.HashPassword(password),
		Roles:        roles,
		Permissions:  permissions,
		DBUser:       dbUser,
		DBPassword:   dbPassword,
	}
	if err := s.userRepo.Create(tx, user); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create user %s: %w", username, err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit user creation: %w", err)
	}

	logger.Infof("Created user %s with roles %v", username, roles)
	return user, nil
}

// UpdatePermissions replaces a user's permission grants. Live sessions keep
// their already-loaded principal; the change applies from the next login.
func (s *authService) UpdatePermissions(userID uint, permissions models.Permissions) error {
	if err := validateGrants(permissions); err != nil {
		return err
	}
	if _, err := s.userRepo.GetByID(nil, userID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("user %d not found", userID)
		}
		return fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	if err := s.userRepo.UpdatePermissions(nil, userID, permissions); err != nil {
		return fmt.Errorf("failed to update permissions for user %d: %w", userID, err)
	}
	logger.Infof("Updated permissions for user %d", userID)
	return nil
}

// ListUsers returns all accounts.
func (s *authService) ListUsers() ([]models.User, error) {
	return s.userRepo.GetAll(nil)
}

// validateGrants rejects permission entries that are neither the wildcard
// nor plain identifiers, so malformed grants never reach policy evaluation.
func validateGrants(permissions models.Permissions) error {
	for _, group := range [][]string{permissions.Databases, permissions.Tables, permissions.Columns} {
		for _, grant := range group {
			if !utils.IsValidGrant(grant) {
				return fmt.Errorf("invalid permission grant: %q", grant)
			}
		}
	}
	return nil
}
