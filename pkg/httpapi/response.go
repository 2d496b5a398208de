package httpapi

import (
	"errors"
	"net/http"

	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/errutil"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Envelope is the uniform response body shared by every endpoint.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message"`
	Error   interface{} `json:"error,omitempty"`
}

func OK(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data, Message: message})
}

func Created(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data, Message: message})
}

// Error writes a domain error with its fixed HTTP status. Unrecognised
// errors surface as 500 with a generic message.
func Error(c *gin.Context, err error) {
	var base errutil.BaseError
	if errors.As(err, &base) {
		body := Envelope{Success: false, Message: base.Message}
		if len(base.Details) > 0 {
			body.Error = map[string]interface{}{
				"code":    base.Code,
				"details": base.Details,
			}
		} else {
			body.Error = map[string]interface{}{"code": base.Code}
		}
		c.AbortWithStatusJSON(base.Code.HTTPStatus(), body)
		return
	}

	zap.L().Error("unhandled error", zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, Envelope{
		Success: false,
		Message: "internal server error",
	})
}
