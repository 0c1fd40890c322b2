package httpserver

import (
	"context"
	"net/http"
	"strings"

	"farmtable/internal/domain"
	"github.com/gin-gonic/gin"
)

type ctxKey string

const identityCtxKey ctxKey = "identity"

// identityMiddleware validates the bearer token and stores the caller in the
// request context.
func identityMiddleware(tokens tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		id, err := tokens.Validate(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		ctx := context.WithValue(c.Request.Context(), identityCtxKey, id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func identityFrom(c *gin.Context) domain.Identity {
	id, _ := c.Request.Context().Value(identityCtxKey).(domain.Identity)
	return id
}
