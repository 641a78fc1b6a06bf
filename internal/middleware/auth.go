package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"subscription-api/internal/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ContextUserIDKey holds the authenticated user id in the gin context.
const ContextUserIDKey = "auth_user_id"

// BearerAuthMiddleware validates an HS256 bearer token signed with secret and
// stores its user id in the context.
func BearerAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(tokenString) == "" {
			response.ErrorJSON(c, http.StatusUnauthorized, "Access token required")
			c.Abort()
			return
		}

		userID, err := ParseUserToken(strings.TrimSpace(tokenString), secret)
		if err != nil {
			response.ErrorJSON(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// ParseUserToken verifies tokenString and returns the user id it carries, read
// from the "userId" claim or, failing that, "sub".
func ParseUserToken(tokenString, secret string) (string, error) {
	if secret == "" {
		return "", errors.New("token secret not configured")
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil {
		return "", err
	}

	switch v := claims["userId"].(type) {
	case string:
		if v != "" {
			return v, nil
		}
	case float64:
		return strconv.FormatInt(int64(v), 10), nil
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub, nil
	}
	return "", fmt.Errorf("token carries no user id")
}

// AuthenticatedUserID returns the user id set by BearerAuthMiddleware.
func AuthenticatedUserID(c *gin.Context) string {
	return c.GetString(ContextUserIDKey)
}
