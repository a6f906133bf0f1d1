package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v5"

	anyerrors "github.com/wippyai/anyfile/errors"
)

var errTooLarge = errors.New("request body too large")

type bodyTooLargeError struct {
	limit int64
}

func (e bodyTooLargeError) Error() string {
	return fmt.Sprintf("request body exceeds %d bytes", e.limit)
}

func (e bodyTooLargeError) Unwrap() error {
	return errTooLarge
}

func errBodyTooLarge(limit int64) error {
	return bodyTooLargeError{limit: limit}
}

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failed request.
type ErrorDetail struct {
	Kind      string `json:"kind"`
	Phase     string `json:"phase,omitempty"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor maps an error to its HTTP status. Container and metadata codec
// failures are the client's fault but well-formed requests, hence 422.
func statusFor(err error) int {
	if errors.Is(err, errTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	switch anyerrors.KindOf(err) {
	case anyerrors.KindTruncatedHeader,
		anyerrors.KindInvalidMagic,
		anyerrors.KindTruncatedContainer,
		anyerrors.KindTrailingData,
		anyerrors.KindInvalidMetadata:
		return http.StatusUnprocessableEntity
	case anyerrors.KindUnknownOperation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c *echo.Context, err error) error {
	detail := ErrorDetail{
		Kind:      "internal",
		Message:   err.Error(),
		RequestID: requestIDOf(c),
	}
	var e *anyerrors.Error
	if errors.As(err, &e) {
		detail.Kind = string(e.Kind)
		detail.Phase = string(e.Phase)
	} else if errors.Is(err, errTooLarge) {
		detail.Kind = "body_too_large"
	}
	return c.JSON(statusFor(err), ErrorBody{Error: detail})
}
