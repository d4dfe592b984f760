package response

import (
	"errors"
	"net/http"

	"wallet-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// Envelope is the uniform response shape for every endpoint:
// {status, statusCode, message?, data?}.
type Envelope struct {
	Status     string      `json:"status"`
	StatusCode int         `json:"statusCode"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
}

// OK sends a 200 success envelope with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{
		Status:     "success",
		StatusCode: http.StatusOK,
		Data:       data,
	})
}

// OKMessage sends a 200 success envelope with a message and data.
func OKMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Envelope{
		Status:     "success",
		StatusCode: http.StatusOK,
		Message:    message,
		Data:       data,
	})
}

// Created sends a 201 success envelope with a message and data.
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{
		Status:     "success",
		StatusCode: http.StatusCreated,
		Message:    message,
		Data:       data,
	})
}

// Ack sends a bare 200 acknowledgment. Used by the gateway webhook, whose
// caller retries indefinitely on anything but a 2xx.
func Ack(c *gin.Context) {
	c.JSON(http.StatusOK, Envelope{
		Status:     "success",
		StatusCode: http.StatusOK,
	})
}

// Error sends an error envelope. It checks if err is an *apperror.AppError
// and maps it accordingly, otherwise returns 500.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, Envelope{
			Status:     "error",
			StatusCode: appErr.HTTPStatus,
			Message:    appErr.Message,
		})
		return
	}

	// Unknown error -> 500
	c.JSON(http.StatusInternalServerError, Envelope{
		Status:     "error",
		StatusCode: http.StatusInternalServerError,
		Message:    "Internal server error",
	})
}
