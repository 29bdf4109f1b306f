package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/sandeepkv93/fittrack-backend/internal/repository"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrDuplicateCredential = errors.New("email or username already registered")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotFound            = errors.New("not found")
	ErrThrottled           = errors.New("too many failed attempts")
)

// ValidationError reports a single rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }
func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

type NotFoundError struct{ Resource string }

func (e *NotFoundError) Error() string { return e.Resource + " not found" }
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

type ThrottledError struct{ RetryAfter time.Duration }

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("too many failed attempts, retry after %s", e.RetryAfter.Round(time.Second))
}
func (e *ThrottledError) Unwrap() error { return ErrThrottled }

func mapRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrPlanNotFound):
		return &NotFoundError{Resource: "plan"}
	case errors.Is(err, repository.ErrRoutineNotFound):
		return &NotFoundError{Resource: "routine"}
	case errors.Is(err, repository.ErrExerciseNotFound):
		return &NotFoundError{Resource: "exercise"}
	case errors.Is(err, repository.ErrNotFound):
		return &NotFoundError{Resource: "resource"}
	default:
		return err
	}
}
