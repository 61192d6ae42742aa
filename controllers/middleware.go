package controllers

import (
	"net/http"
	"strings"

	"genbiapi/models"
	"genbiapi/services/auth"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

var authSrv auth.AuthService

// SetAuthService initializes the auth service instance.
func SetAuthService(srv auth.AuthService) {
	authSrv = srv
}

// RequireAuth resolves the bearer token and attaches the principal to the
// request context. Requests without a live session are rejected.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		principal, ok := authSrv.ResolveToken(token)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireAdmin rejects requests whose principal lacks the admin role.
// Must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := CurrentPrincipal(c)
		if principal == nil || !principal.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}

// CurrentPrincipal returns the authenticated principal for the request, or
// nil when the request is unauthenticated.
func CurrentPrincipal(c *gin.Context) *models.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	principal, _ := v.(*models.Principal)
	return principal
}
