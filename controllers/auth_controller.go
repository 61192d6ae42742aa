package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"genbiapi/models"
	"genbiapi/pkg/logger"
	"genbiapi/utils"

	"github.com/gin-gonic/gin"
)

// LoginRequest represents the request body for authentication
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents a successful authentication response
type LoginResponse struct {
	Token    string   `json:"token"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// CreateUserRequest represents the request body for creating an account
type CreateUserRequest struct {
	Username    string             `json:"username" binding:"required"`
	Password    string             `json:"password" binding:"required,min=8"`
	Roles       []string           `json:"roles"`
	Permissions models.Permissions `json:"permissions"`
	DBUser      string             `json:"db_user"`
	DBPassword  string             `json:"db_password"`
}

// UpdatePermissionsRequest represents the request body for replacing a user's grants
type UpdatePermissionsRequest struct {
	Permissions models.Permissions `json:"permissions" binding:"required"`
}

// Login authenticates a user
// @Summary Authenticate
// @Description Verifies credentials and opens a bearer-token session
// @Tags Auth
// @Accept json
// @Produce json
// @Param loginRequest body LoginRequest true "Credentials"
// @Success 200 {object} LoginResponse "Session opened"
// @Failure 401 {object} StandardErrorResponse "Invalid credentials"
// @Router /api/auth/login [post]
func login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, fmt.Errorf("invalid request body: %v", err))
		return
	}

	principal, token, err := authSrv.Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, LoginResponse{
		Token:    token,
		Username: principal.Username,
		Roles:    principal.Roles,
	})
}

// Logout closes the current session
// @Summary Logout
// @Description Closes the bearer-token session
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MessageResponse "Session closed"
// @Router /api/auth/logout [post]
func logout(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if len(header) > 7 {
		authSrv.Logout(header[7:])
	}
	utils.JSONResponse(c, http.StatusOK, gin.H{"message": "logged out"})
}

// CreateUser creates a new account
// @Summary Create user
// @Description Creates an account with roles and permission grants (admin only)
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param createUserRequest body CreateUserRequest true "Account definition"
// @Success 200 {object} models.User "Created account"
// @Failure 400 {object} StandardErrorResponse "Invalid request parameters"
// @Router /api/users [post]
func createUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, fmt.Errorf("invalid request body: %v", err))
		return
	}

	user, err := authSrv.CreateUser(req.Username, req.Password, req.Roles, req.Permissions, req.DBUser, req.DBPassword)
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	logger.Infof("User %s created by %s", user.Username, CurrentPrincipal(c).Username)
	utils.JSONResponse(c, http.StatusOK, user)
}

// UpdateUserPermissions replaces a user's permission grants
// @Summary Update user permissions
// @Description Replaces the permission grants of an account (admin only)
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param updatePermissionsRequest body UpdatePermissionsRequest true "New grants"
// @Success 200 {object} MessageResponse "Permissions updated"
// @Failure 400 {object} StandardErrorResponse "Invalid request parameters"
// @Router /api/users/{id}/permissions [put]
func updateUserPermissions(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, fmt.Errorf("invalid user id"))
		return
	}

	var req UpdatePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, fmt.Errorf("invalid request body: %v", err))
		return
	}

	if err := authSrv.UpdatePermissions(uint(id), req.Permissions); err != nil {
		utils.ErrorResponse(c, err)
		return
	}

	utils.JSONResponse(c, http.StatusOK, gin.H{"message": "permissions updated"})
}

// ListUsers returns all accounts
// @Summary List users
// @Description Lists all accounts (admin only)
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.User "Accounts"
// @Router /api/users [get]
func listUsers(c *gin.Context) {
	users, err := authSrv.ListUsers()
	if err != nil {
		utils.ErrorResponse(c, err)
		return
	}
	utils.JSONResponse(c, http.StatusOK, users)
}

// RegisterAuthRoutes registers HTTP endpoints for authentication and account management.
func RegisterAuthRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/login", login)
	rg.POST("/auth/logout", RequireAuth(), logout)

	users := rg.Group("/users", RequireAuth(), RequireAdmin())
	{
		users.GET("", listUsers)
		users.POST("", createUser)
		users.PUT("/:id/permissions", updateUserPermissions)
	}
}
