package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/pktdms/docgate/internal/auth/domain"
	documentdomain "github.com/pktdms/docgate/internal/document/domain"
	"gorm.io/gorm"
)

// ErrorHandlingMiddleware renders any error attached to the context that no
// handler wrote a response for.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, body := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, body)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, gin.H) {
	var conflict *documentdomain.ConflictError
	if errors.As(err, &conflict) {
		return http.StatusConflict, gin.H{
			"success":          false,
			"message":          conflict.Error(),
			"code":             "DOCUMENT_EXISTS",
			"existingDocument": conflict.Existing,
		}
	}

	switch {
	case errors.Is(err, documentdomain.ErrInvalidDocType):
		return http.StatusBadRequest, gin.H{"success": false, "message": "Invalid document type"}
	case errors.Is(err, documentdomain.ErrInvalidStatus):
		return http.StatusBadRequest, gin.H{"success": false, "message": "Invalid processing status"}
	case errors.Is(err, documentdomain.ErrMissingFile):
		return http.StatusBadRequest, gin.H{"success": false, "message": "No file uploaded"}
	case errors.Is(err, errInvalidRequest):
		return http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request"}
	case errors.Is(err, authdomain.ErrInvalidCredentials):
		return http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid username or password"}
	case errors.Is(err, authdomain.ErrInvalidToken):
		return http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"}
	case errors.Is(err, documentdomain.ErrNotFound),
		errors.Is(err, documentdomain.ErrInvalidID),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, gin.H{"success": false, "message": "Document not found"}
	default:
		return http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"}
	}
}

var errInvalidRequest = errors.New("invalid_request")
