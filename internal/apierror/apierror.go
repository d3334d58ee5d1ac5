package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrNotFound            ErrorCode = "NOT_FOUND"
	ErrInvalidState        ErrorCode = "INVALID_STATE"
	ErrInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"
	ErrTransientIO         ErrorCode = "TRANSIENT_IO"
	ErrConflict            ErrorCode = "CONFLICT"
	ErrInvalidInput        ErrorCode = "INVALID_INPUT"
	ErrInternalServer      ErrorCode = "INTERNAL_SERVER_ERROR"
)

type APIError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code ErrorCode, message string, details interface{}) APIError {
	if details != nil {
		logrus.WithField("code", code).Error(details)
	}
	return APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// As unwraps err into an APIError if one is present in its chain.
func As(err error) (APIError, bool) {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return APIError{}, false
}

// Is reports whether err carries an APIError with the given code.
func Is(err error, code ErrorCode) bool {
	apiErr, ok := As(err)
	return ok && apiErr.Code == code
}

var httpStatus = map[ErrorCode]int{
	ErrNotFound:            http.StatusNotFound,
	ErrInvalidState:        http.StatusConflict,
	ErrConflict:            http.StatusConflict,
	ErrInsufficientBalance: http.StatusUnprocessableEntity,
	ErrTransientIO:         http.StatusServiceUnavailable,
	ErrInvalidInput:        http.StatusBadRequest,
	ErrInternalServer:      http.StatusInternalServerError,
}

// MapErrorToHTTPStatus returns the status for the APIError in err's chain. Anything else is a 500.
func MapErrorToHTTPStatus(err error) int {
	apiErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if status, known := httpStatus[apiErr.Code]; known {
		return status
	}
	return http.StatusInternalServerError
}
