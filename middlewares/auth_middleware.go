package middlewares

import (
	"net/http"
	"strings"

	"nutrition/utils"

	"github.com/gin-gonic/gin"
)

const ContextKeySubject = "subject"

// AuthMiddleware requires a valid HS256 bearer token. An empty secret
// disables the check so local setups work without tokens.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			abortWithError(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		subject, err := utils.ParseJWT(secret, strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "invalid token")
			return
		}

		c.Set(ContextKeySubject, subject)
		c.Next()
	}
}
