package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/accounts/internal/logging"
	"github.com/thereayou/accounts/internal/services"
)

func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindValidation, services.KindAuth:
		return http.StatusBadRequest
	case services.KindConflict:
		return http.StatusConflict
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindThrottled:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

func respond(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"status":  "error",
		"code":    status,
		"message": message,
	})
}

// respondError writes err as an error envelope. Server-side failures are
// logged and their details kept out of the response.
func respondError(c *gin.Context, log logging.Logger, err error) {
	kind := services.KindOf(err)
	status := statusFor(kind)

	var message string
	switch kind {
	case services.KindValidation:
		message = err.Error()
	case services.KindUnauthorized:
		message = services.ErrUnauthorized.Message
	case services.KindUnknown:
		message = "internal server error"
	default:
		var se *services.Error
		errors.As(err, &se)
		message = se.Message
	}

	if status >= http.StatusInternalServerError {
		log.Error(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	}

	respond(c, status, message)
}
