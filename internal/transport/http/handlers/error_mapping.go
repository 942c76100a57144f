package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/halcyonsoft/halcyon/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError resolves an error to the envelope form. Validation
// errors surface every message; forbidden is a content-less deny; anything
// unmatched is logged and reported generically so internals never leak.
func RespondWithMappedError(c *gin.Context, log *zap.Logger, err error, cases ...ErrorCase) {
	if err == nil {
		c.JSON(http.StatusOK, NewResult(nil))
		return
	}

	var validationErr *usecase.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, NewErrors(validationErr.Messages...))
		return
	}

	if errors.Is(err, usecase.ErrForbidden) {
		c.Status(http.StatusForbidden)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrors(cs.Message))
			return
		}
	}

	if log != nil {
		log.Error("unhandled request error",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(http.StatusInternalServerError, NewErrors("An unexpected error occurred. Please try again later."))
}

// notFoundCase builds the 400 mapping used for absent users, devices, and
// notifications. Not-found is reported like a validation failure so resource
// existence is not revealed by status code.
func notFoundCase(err error, message string) ErrorCase {
	return ErrorCase{Err: err, Status: http.StatusBadRequest, Message: message}
}
