package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
)

// TokenAuthMiddleware checks the API token header against a bcrypt hash.
// An empty hash disables the check (local development).
func TokenAuthMiddleware(tokenHash string) gin.HandlerFunc {
	hash := []byte(tokenHash)
	return func(c *gin.Context) {
		if len(hash) == 0 {
			c.Next()
			return
		}

		provided := c.GetHeader(constants.ServerConfig.TokenHeader)
		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "API token required",
			})
			return
		}
		if err := bcrypt.CompareHashAndPassword(hash, []byte(provided)); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "invalid API token",
			})
			return
		}
		c.Next()
	}
}

// HashToken returns the bcrypt hash to store in API_TOKEN_HASH.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
