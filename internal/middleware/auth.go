package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"olago/internal/identity"
)

const riderIDKey = "riderID"

// AuthMiddleware resolves the bearer token into a rider id and stores it on
// the context. Requests without a valid token get 401.
func AuthMiddleware(resolver identity.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		riderID, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(riderIDKey, riderID)
		c.Next()
	}
}

// RiderID returns the authenticated rider id.
func RiderID(c *gin.Context) (string, bool) {
	v, ok := c.Get(riderIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
