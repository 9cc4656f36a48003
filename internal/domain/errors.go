package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInternalError      = errors.New("internal error")
	ErrUserNotFound       = errors.New("user not found")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrNoSourceBudgets    = errors.New("no budgets found in source period")
	ErrInvalidPeriod      = errors.New("invalid period")
	ErrInvalidPercentage  = errors.New("max carry-over percentage must be between 0 and 100")
	ErrInvalidResetDay    = errors.New("reset day must be between 1 and 28")
	ErrInvalidAmount      = errors.New("amount must be zero or positive")
	ErrBudgetNotFound     = errors.New("budget not found")
	ErrPreferenceNotFound = errors.New("user preference not found")
)

// StorageError wraps a failure returned by the storage collaborator
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err with the storage operation that produced it
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// CategoryFailure records a rollover write that failed for a single category
type CategoryFailure struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Err      error  `json:"-"`
}

// PartialExecutionError is returned by an execute run when some category upserts
// were committed and others failed.
type PartialExecutionError struct {
	Failures []CategoryFailure
}

func (e *PartialExecutionError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Category + ": " + f.Message
	}
	return "rollover partially failed: " + strings.Join(msgs, "; ")
}

func (e *PartialExecutionError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}
