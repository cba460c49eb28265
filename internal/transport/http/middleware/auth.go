package middleware

import (
	"net/http"
	"strings"

	"github.com/ErlanBelekov/answerkey-relay/internal/reqctx"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	errUnauthorized = "Unauthorized"

	// UserIDKey holds the chat user id taken from the token subject.
	UserIDKey = "userID"
)

// Auth validates an HS256 Bearer JWT issued by the chat bridge and sets
// UserIDKey in the gin context from its "sub" claim.
func Auth(jwtKey []byte) gin.HandlerFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		var claims jwt.RegisteredClaims
		_, err := parser.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), &claims, func(*jwt.Token) (any, error) {
			return jwtKey, nil
		})
		if err != nil || claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		c.Set(UserIDKey, claims.Subject)
		c.Request = c.Request.WithContext(reqctx.WithUserID(c.Request.Context(), claims.Subject))
		c.Next()
	}
}
