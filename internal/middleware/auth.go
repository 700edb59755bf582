package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"event-service/internal/identity"
)

// AuthMiddleware validates the Authorization header against the external
// identity provider and stores the user snapshot on the context.
func AuthMiddleware(validator identity.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		user, err := validator.ValidateToken(c.Request.Context(), parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("userID", user.ID)
		c.Set("user", user)
		c.Next()
	}
}

// CurrentUser reads the authenticated user set by AuthMiddleware.
func CurrentUser(c *gin.Context) identity.User {
	if val, ok := c.Get("user"); ok {
		if user, ok := val.(identity.User); ok {
			return user
		}
	}
	return identity.User{}
}
