package utils

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/booking/logger"
	"github.com/joy095/booking/utils/jwt_parse"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID   uuid.UUID
	Username string
	Role     string
}

// HasRole reports whether the caller holds one of roles.
func (p Principal) HasRole(roles ...string) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// GetUserIDFromContext extracts the user ID set by the JWT middleware.
func GetUserIDFromContext(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(jwt_parse.ContextUserID)
	if !exists {
		logger.ErrorLogger.Error("User ID not found in context.")
		return uuid.Nil, ErrUserIDNotFound
	}

	userIDStr, ok := raw.(string)
	if !ok {
		logger.ErrorLogger.Errorf("User ID in context is not a string, actual type: %T", raw)
		return uuid.Nil, fmt.Errorf("%w: invalid user ID format in context", ErrUnauthorized)
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to parse user ID string '%s' to UUID: %v", userIDStr, err)
		return uuid.Nil, fmt.Errorf("%w: invalid user ID format", ErrUnauthorized)
	}
	return userID, nil
}

// GetPrincipal returns the caller identified by the JWT middleware.
func GetPrincipal(c *gin.Context) (Principal, error) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		return Principal{}, err
	}
	return Principal{
		UserID:   userID,
		Username: c.GetString(jwt_parse.ContextUsername),
		Role:     c.GetString(jwt_parse.ContextRole),
	}, nil
}
