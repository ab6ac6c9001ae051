package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xraph/booking"
)

// Error codes rendered in the "code" field.
const (
	CodeInvalidInput        = "invalid_input"
	CodeNotFound            = "not_found"
	CodeAlreadyExists       = "already_exists"
	CodeConflict            = "conflict"
	CodeInsufficientBalance = "insufficient_balance"
	CodeInvalidSignature    = "invalid_signature"
	CodePayloadTooLarge     = "payload_too_large"
	CodeUnavailable         = "unavailable"
	CodeInternal            = "internal"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// status maps an engine error to an HTTP status and code.
func status(err error) (int, string) {
	switch {
	case booking.IsValidation(err):
		return http.StatusBadRequest, CodeInvalidInput
	case booking.IsNotFound(err):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, booking.ErrAlreadyExists):
		return http.StatusConflict, CodeAlreadyExists
	case booking.IsConflict(err):
		return http.StatusConflict, CodeConflict
	case booking.IsInsufficientBalance(err):
		return http.StatusPaymentRequired, CodeInsufficientBalance
	case booking.IsInvalidSignature(err):
		return http.StatusUnauthorized, CodeInvalidSignature
	case booking.IsRetryable(err), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, CodeUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	code, name := status(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		h.logger.Error("api: request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(code, errorBody{Error: msg, Code: name})
}

func (h *Handler) invalid(c *gin.Context, field, msg string) {
	h.fail(c, &booking.ValidationError{Field: field, Message: msg})
}
