package ws

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/gin-gonic/gin"
)

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

// bearerToken extracts the token from the Authorization header or, for
// browser websocket clients that cannot set headers, the token query param.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && (header[:7] == "Bearer " || header[:7] == "bearer ") {
		return header[7:]
	}
	return c.Query("token")
}
