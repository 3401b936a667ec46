package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	platformerrors "avatar-server-go/internal/platform/errors"
)

// ErrorResponse is the body every failed request carries.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// RespondError writes the unified error shape.
func RespondError(c *gin.Context, httpStatus int, detail string) {
	c.JSON(httpStatus, ErrorResponse{Detail: detail})
}

// RespondDomainError maps a domain failure onto an HTTP status. Validation
// problems are the caller's fault; everything else is a server-side failure.
func RespondDomainError(c *gin.Context, err error, fallback string) {
	if platformerrors.IsKind(err, platformerrors.KindValidation) {
		RespondError(c, http.StatusBadRequest, errorDetail(err))
		return
	}
	RespondError(c, http.StatusInternalServerError, fallback)
}

func errorDetail(err error) string {
	var typed *platformerrors.Error
	if errors.As(err, &typed) {
		return typed.Message
	}
	return err.Error()
}
