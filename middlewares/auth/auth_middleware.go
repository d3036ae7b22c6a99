package auth

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/joy095/booking/logger"
	"github.com/joy095/booking/models/shared_models"
)

// Claims carried by the identity service's access tokens. Token issuance is
// external; this middleware only verifies and extracts.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func jwtSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logger.WarnLogger.Warn("JWT_SECRET environment variable not set")
		return []byte("default-insecure-secret-only-for-development")
	}
	return []byte(secret)
}

// AuthMiddleware checks the bearer token and resolves the principal id and
// role into the request context ("sub", "role").
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return jwtSecret(), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			logger.WarnLogger.Warnf("Rejected invalid token: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token missing subject"})
			return
		}
		role := claims.Role
		if role == "" {
			role = shared_models.RoleCustomer
		}

		c.Set("sub", claims.Subject)
		c.Set("role", role)
		c.Next()
	}
}
