package util

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("resource not found")
	ErrValidation          = errors.New("invalid submission")
	ErrRestrictedDelete    = errors.New("deletion blocked by dependent records")
	ErrFeedbackUnavailable = errors.New("AI feedback unavailable")
	ErrAttemptConflict     = errors.New("concurrent attempt conflict")
	ErrOrderConflict       = errors.New("concurrent question order conflict")
	ErrNoAttemptsLeft      = errors.New("no attempts left")
	ErrPermissionDenied    = errors.New("permission denied")
)

// ValidationError describes a submission or input that does not fit the question.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func NewNotFoundError(entity string, id uint) error {
	return &NotFoundError{Entity: entity, ID: id}
}

type RestrictedDeleteError struct {
	Entity     string
	ID         uint
	Dependents int64
}

func (e *RestrictedDeleteError) Error() string {
	return fmt.Sprintf("cannot delete %s %d: %d answers reference it", e.Entity, e.ID, e.Dependents)
}

func (e *RestrictedDeleteError) Is(target error) bool { return target == ErrRestrictedDelete }

// FeedbackUnavailableError wraps the failure of the external AI call for one answer.
type FeedbackUnavailableError struct {
	AnswerID uint
	Err      error
}

func (e *FeedbackUnavailableError) Error() string {
	return fmt.Sprintf("AI feedback unavailable for answer %d: %v", e.AnswerID, e.Err)
}

func (e *FeedbackUnavailableError) Is(target error) bool { return target == ErrFeedbackUnavailable }

func (e *FeedbackUnavailableError) Unwrap() error { return e.Err }
