package jwt_parse

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joy095/booking/logger"
)

// Context keys set by Authenticate.
const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextRole     = "role"
)

var (
	ErrMissingToken   = errors.New("no authorization token")
	ErrInvalidFormat  = errors.New("invalid authorization format")
	ErrInvalidToken   = errors.New("invalid token")
	ErrMissingSubject = errors.New("token does not carry a user id")
)

// Claims are the access-token claims issued by the users service.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// BearerToken extracts the token from a "Bearer <token>" header value.
func BearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingToken
	}
	if len(authHeader) <= 7 || strings.ToLower(authHeader[:7]) != "bearer " {
		return "", ErrInvalidFormat
	}
	return strings.TrimSpace(authHeader[7:]), nil
}

// ParseToken validates an HMAC-signed token and returns its claims.
func ParseToken(secret []byte, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, ErrMissingSubject
	}
	return claims, nil
}

// GenerateAccessToken signs a token for the given user. Service accounts and
// tests use it; interactive users get theirs from the users service.
func GenerateAccessToken(secret []byte, userID uuid.UUID, username, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Authenticate validates the request's bearer token and sets the caller's
// id, username and role in the context. On failure it aborts with 401.
func Authenticate(c *gin.Context, secret []byte) bool {
	tokenString, err := BearerToken(c.GetHeader("Authorization"))
	if err != nil {
		logger.WarnLogger.Warnf("Rejecting request to %s: %v", c.FullPath(), err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return false
	}

	claims, err := ParseToken(secret, tokenString)
	if err != nil {
		logger.WarnLogger.Warnf("Failed to parse JWT token: %v", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return false
	}

	c.Set(ContextUserID, claims.Subject)
	c.Set(ContextUsername, claims.Username)
	c.Set(ContextRole, claims.Role)
	return true
}
