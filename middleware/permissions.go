package middleware

import (
	"github.com/gin-gonic/gin"
)

// Role constants to avoid string typos
const (
	RoleAdmin   = "admin"
	RoleDevotee = "devotee"
)

// AccessContext stores the authenticated actor for downstream handlers
type AccessContext struct {
	UserID         uint
	RoleName       string
	PermissionType string // "full" or "readonly"
}

// CanWrite returns true if the user has write permissions
func (ac *AccessContext) CanWrite() bool {
	return ac.PermissionType == "full"
}

// IsAdmin returns true for yatra administrators
func (ac *AccessContext) IsAdmin() bool {
	return ac.RoleName == RoleAdmin
}

// GetAccessContext pulls the access context set by AuthMiddleware
func GetAccessContext(c *gin.Context) (AccessContext, bool) {
	raw, exists := c.Get("access_context")
	if !exists {
		return AccessContext{}, false
	}
	ctx, ok := raw.(AccessContext)
	return ctx, ok
}
