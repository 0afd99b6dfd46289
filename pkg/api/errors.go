package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/deskfs/deskfs/pkg/store/blob"
	"github.com/deskfs/deskfs/pkg/vfs"
)

// errorResponse is the JSON body returned on failures.
type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps service errors to HTTP status codes and writes the JSON
// error body. Unrecognized errors become a generic 500 so internal detail
// never leaks to clients.
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, vfs.ErrInvalidPath),
		errors.Is(err, vfs.ErrValidation),
		errors.Is(err, vfs.ErrInvalidFileType):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, vfs.ErrNotFound),
		errors.Is(err, vfs.ErrDirectoryNotFound),
		errors.Is(err, blob.ErrBlobNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, vfs.ErrConflict):
		status = http.StatusConflict
		message = err.Error()
	case errors.Is(err, vfs.ErrTooLarge):
		status = http.StatusRequestEntityTooLarge
		message = err.Error()
	default:
		s.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}

	c.AbortWithStatusJSON(status, errorResponse{Error: message})
}
