package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gio21sr/oberfit/internal/apperr"
	"github.com/Gio21sr/oberfit/internal/logger"
)

var kindStatus = map[apperr.Kind]int{
	apperr.KindValidation:            http.StatusBadRequest,
	apperr.KindInvalidSchedule:       http.StatusBadRequest,
	apperr.KindPastDateTime:          http.StatusBadRequest,
	apperr.KindOutsideOperatingHours: http.StatusBadRequest,
	apperr.KindCapacityExceeded:      http.StatusBadRequest,
	apperr.KindInvalidMember:         http.StatusUnprocessableEntity,
	apperr.KindClassNotFound:         http.StatusNotFound,
	apperr.KindMemberNotFound:        http.StatusNotFound,
	apperr.KindDuplicateClassSlot:    http.StatusConflict,
	apperr.KindAlreadyEnrolled:       http.StatusConflict,
	apperr.KindNoSeatsAvailable:      http.StatusConflict,
	apperr.KindQuotaExhausted:        http.StatusConflict,
	apperr.KindConflictOnDelete:      http.StatusConflict,
	apperr.KindNameTaken:             http.StatusConflict,
	apperr.KindInvalidCredentials:    http.StatusUnauthorized,
	apperr.KindForbidden:             http.StatusForbidden,
	apperr.KindStorageUnavailable:    http.StatusServiceUnavailable,
	apperr.KindInternal:              http.StatusInternalServerError,
}

func StatusFor(err error) int {
	if status, ok := kindStatus[apperr.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// RespondError writes the JSON error envelope for err. Untagged errors
// are logged and reported as a generic 500.
func RespondError(c *gin.Context, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		logger.Error("unhandled error", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "path", c.FullPath(), "kind", e.Kind.String(), "error", err)
	}
	if apperr.Retryable(err) {
		c.Header("Retry-After", "1")
	}

	msg := e.Message()
	if msg == "" {
		msg = "internal server error"
	}
	c.JSON(status, ErrorResponse{Error: msg, Code: e.Kind.String()})
}

// BadRequest reports a malformed request body or path parameter.
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: apperr.KindValidation.String()})
}
