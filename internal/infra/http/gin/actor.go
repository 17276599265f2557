package ginserver

import (
	"crypto/subtle"
	"strings"

	gin "github.com/gin-gonic/gin"

	"shutterbook/internal/app/middleware"
)

// AdminTokenActor marks requests carrying "Authorization: Bearer <token>"
// as coming from an administrator. Other requests act as anonymous clients.
func AdminTokenActor(token string) gin.HandlerFunc {
	want := []byte(token)
	return func(c *gin.Context) {
		actor := middleware.Actor{ID: "anonymous"}
		got := extractBearerToken(c.GetHeader("Authorization"))
		if token != "" && got != "" && subtle.ConstantTimeCompare([]byte(got), want) == 1 {
			actor = middleware.Actor{ID: "admin", Admin: true}
		}
		c.Request = c.Request.WithContext(middleware.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

func extractBearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
