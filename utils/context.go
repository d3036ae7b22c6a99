// utils/context.go
package utils

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/booking/logger"
)

// GetUserIDFromContext extracts the authenticated principal's ID from the
// Gin context. The auth middleware stores it as a STRING under "sub".
func GetUserIDFromContext(c *gin.Context) (uuid.UUID, error) {
	sub, exists := c.Get("sub")
	if !exists {
		logger.ErrorLogger.Error("User ID not found in context.")
		return uuid.Nil, ErrUserIDNotFound
	}

	userIDStr, ok := sub.(string)
	if !ok {
		logger.ErrorLogger.Errorf("User ID in context is not a string, actual type: %T", sub)
		return uuid.Nil, fmt.Errorf("internal server error: invalid user ID format in context")
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to parse user ID string '%s' to UUID: %v", userIDStr, err)
		return uuid.Nil, fmt.Errorf("internal server error: invalid user ID format")
	}
	return userID, nil
}

// GetRoleFromContext returns the role resolved by the auth middleware.
func GetRoleFromContext(c *gin.Context) string {
	if role, exists := c.Get("role"); exists {
		if s, ok := role.(string); ok {
			return s
		}
	}
	return ""
}

// RequireRole checks the caller's role against an allow list.
func RequireRole(c *gin.Context, allowed ...string) error {
	role := GetRoleFromContext(c)
	for _, a := range allowed {
		if role == a {
			return nil
		}
	}
	return ErrUnauthorized
}
