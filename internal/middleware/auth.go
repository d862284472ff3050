package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// ManagementAuth guards a route group with a bcrypt-hashed management key.
// The caller presents the key as `Authorization: Bearer <key>` or in the
// X-Management-Key header. An empty hash disables the check, which is the
// intended setup for trusted-network deployments.
func ManagementAuth(keyHash string) gin.HandlerFunc {
	if strings.TrimSpace(keyHash) == "" {
		log.Warn("management key hash not configured; provisioning API is unauthenticated")
		return func(c *gin.Context) { c.Next() }
	}

	hash := []byte(keyHash)
	return func(c *gin.Context) {
		key := extractKey(c)
		if key == "" || bcrypt.CompareHashAndPassword(hash, []byte(key)) != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or missing management key",
			})
			return
		}
		c.Next()
	}
}

func extractKey(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		if rest, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return strings.TrimSpace(c.GetHeader("X-Management-Key"))
}
