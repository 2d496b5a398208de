package middleware

import (
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/httpapi"

	"github.com/gin-gonic/gin"
)

// Error converts errors attached with c.Error into the response envelope.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		if err := c.Errors.Last(); err != nil {
			httpapi.Error(c, err.Err)
		}
	}
}
