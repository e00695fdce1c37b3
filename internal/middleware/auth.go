package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"trueheal-portal/internal/models"
	"trueheal-portal/internal/services"
	"trueheal-portal/internal/utils"
)

const (
	ctxUserID   = "userID"
	ctxUserRole = "userRole"
)

// bearerToken extracts the token from the Authorization header. present is
// false when the header is absent.
func bearerToken(c *gin.Context) (token string, present bool) {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader == "" {
		return "", false
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", true
	}
	return parts[1], true
}

func abortWith(c *gin.Context, err error) {
	if se, ok := services.AsError(err); ok {
		utils.Abort(c, se.Status, se.Message)
		return
	}
	utils.Abort(c, http.StatusUnauthorized, "Invalid token")
}

func setIdentity(c *gin.Context, id models.Identity) {
	c.Set(ctxUserID, id.UserID)
	c.Set(ctxUserRole, id.Role)
}

// AuthMiddleware creates a middleware for JWT authentication.
func AuthMiddleware(gate *services.TokenGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, present := bearerToken(c)
		if !present {
			abortWith(c, services.ErrMissingToken)
			return
		}
		if token == "" {
			abortWith(c, services.ErrInvalidToken)
			return
		}

		id, err := gate.Authenticate(token)
		if err != nil {
			abortWith(c, err)
			return
		}

		// Set user information in context for downstream handlers
		setIdentity(c, id)
		c.Next()
	}
}

// OptionalAuthMiddleware lets requests without an Authorization header
// through as anonymous. A header that is present but does not verify is
// still rejected.
func OptionalAuthMiddleware(gate *services.TokenGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, present := bearerToken(c)
		if !present {
			c.Next()
			return
		}
		if token == "" {
			abortWith(c, services.ErrInvalidToken)
			return
		}

		id, err := gate.Authenticate(token)
		if err != nil {
			abortWith(c, err)
			return
		}
		setIdentity(c, id)
		c.Next()
	}
}

// RoleAuthMiddleware creates a middleware for role-based authorization.
// It should be used *after* AuthMiddleware.
func RoleAuthMiddleware(allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			utils.Abort(c, http.StatusInternalServerError, "User role not found in context. AuthMiddleware might be missing.")
			return
		}

		if err := services.Authorize(id, allowedRoles...); err != nil {
			abortWith(c, err)
			return
		}

		c.Next()
	}
}

// GetIdentity returns the authenticated caller, if any.
func GetIdentity(c *gin.Context) (models.Identity, bool) {
	userID, ok := GetUserIDFromContext(c)
	if !ok || userID == "" {
		return models.Identity{}, false
	}
	role, ok := GetUserRoleFromContext(c)
	if !ok {
		return models.Identity{}, false
	}
	return models.Identity{UserID: userID, Role: role}, true
}

// Helper function to get user ID from context
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return "", false
	}
	idStr, ok := userID.(string)
	return idStr, ok
}

// Helper function to get user role from context
func GetUserRoleFromContext(c *gin.Context) (models.Role, bool) {
	userRole, exists := c.Get(ctxUserRole)
	if !exists {
		return "", false
	}
	role, ok := userRole.(models.Role)
	return role, ok
}
