package render

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"dotify/internal/models"
	"dotify/internal/services"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status"`
}

// StatusFor maps a service failure kind to its HTTP status
func StatusFor(kind services.Kind) int {
	switch kind {
	case services.KindBadRequest:
		return http.StatusBadRequest
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	case services.KindUploadFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as a JSON error body and aborts the request. Messages of
// unclassified failures are not shown to clients.
func Error(c *gin.Context, err error) {
	kind := services.KindOf(err)
	status := StatusFor(kind)

	message := "Internal server error"
	var svcErr *services.Error
	if errors.As(err, &svcErr) && kind != services.KindInternal {
		message = svcErr.Message
	} else if kind == services.KindUploadFailed {
		message = "Media upload failed"
	}

	if status >= http.StatusInternalServerError {
		slog.Error("Request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"kind", kind.String(),
			"error", err)
	}

	ErrorMessage(c, status, message)
}

// ErrorMessage writes a fixed error message with the given status
func ErrorMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message, Status: "error"})
}

// List writes a page under the collection's name together with its paging
// fields
func List[T any](c *gin.Context, collection string, page models.Page[T]) {
	c.JSON(http.StatusOK, gin.H{
		collection: page.Items,
		"page":     page.Page,
		"pages":    page.Pages,
		"total":    page.Total,
	})
}

// OK writes body with 200
func OK(c *gin.Context, body interface{}) {
	c.JSON(http.StatusOK, body)
}

// Created writes body with 201
func Created(c *gin.Context, body interface{}) {
	c.JSON(http.StatusCreated, body)
}

// Message writes a plain success message
func Message(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"message": message})
}
