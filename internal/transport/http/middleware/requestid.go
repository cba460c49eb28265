package middleware

import (
	"github.com/ErlanBelekov/answerkey-relay/internal/reqctx"
	"github.com/gin-gonic/gin"
)

const maxRequestIDLen = 64

// RequestID injects a request ID into the context and response header. An
// incoming X-Request-ID from the chat bridge is kept when it is short and
// printable, so one chat update can be traced across both services;
// anything else is replaced with a new UUID v4.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if !validRequestID(id) {
			id = reqctx.NewRequestID()
		}

		ctx := reqctx.WithRequestID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, r := range id {
		ok := r == '-' || r == '_' || r == '.' || r == ':' ||
			('0' <= r && r <= '9') || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
		if !ok {
			return false
		}
	}
	return true
}
