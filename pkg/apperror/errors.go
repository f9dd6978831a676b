package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrBadRequest         = errors.New("bad request")
	ErrInternal           = errors.New("internal server error")
	ErrInvalidInput       = errors.New("invalid input")
	ErrRateLimitExceeded  = errors.New("rate limit exceeded")
	ErrStoreMisconfigured = errors.New("database index missing, please notify admin")
	ErrUpstream           = errors.New("upstream service failed")
)

// AppError is a custom error type that can hold an HTTP status code
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// MapErrorToStatus maps common errors to HTTP status codes
func MapErrorToStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != 0 {
		return appErr.Code
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrInvalidInput) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrRateLimitExceeded) {
		return http.StatusTooManyRequests
	}
	if errors.Is(err, ErrStoreMisconfigured) {
		return http.StatusServiceUnavailable
	}
	if errors.Is(err, ErrUpstream) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// ClassifyStoreError tags database errors with the sentinel matching their
// failure class. Errors it does not recognise are returned unchanged.
func ClassifyStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case "42501":
		return fmt.Errorf("%w: %s", ErrForbidden, pgErr.Message)
	case "42P01", "42703", "42704", "42P10":
		return fmt.Errorf("%w: %s", ErrStoreMisconfigured, pgErr.Message)
	}
	return err
}
