package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrNotFound hides whether a resource exists but belongs to someone else.
var ErrNotFound = errors.New("resource not found")

// ErrAttemptCompleted is returned when submitting or abandoning a closed attempt.
var ErrAttemptCompleted = errors.New("attempt is already completed")

// ValidationError carries field-level problems found before any write.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, problem string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: problem}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type AuthorizationError struct {
	Action string
	Reason string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("not allowed to %s: %s", e.Action, e.Reason)
}

// IntegrityError means a multi-write operation was rolled back. Callers may retry.
type IntegrityError struct {
	Op  string
	Err error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s rolled back: %v", e.Op, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

func (e *IntegrityError) Retryable() bool { return true }

type EligibilityCode string

const (
	CodeFirstTestRequired  EligibilityCode = "FIRST_TEST_REQUIRED"
	CodeTooEarlyToRetake   EligibilityCode = "TOO_EARLY_TO_RETAKE"
	CodeMaxAttemptsReached EligibilityCode = "MAX_ATTEMPTS_REACHED"
)

// EligibilityDetails is the remediation data attached to a blocked verdict.
type EligibilityDetails struct {
	FailedAttempts   int64      `json:"failed_attempts,omitempty"`
	AllowedFrom      *time.Time `json:"allowed_from,omitempty"`
	DaysUntilAllowed int        `json:"days_until_allowed,omitempty"`
	NextDueAt        *time.Time `json:"next_due_at,omitempty"`
	Guidance         string     `json:"guidance"`
}

// EligibilityError is a domain verdict, not a failure.
type EligibilityError struct {
	Code    EligibilityCode
	Details EligibilityDetails
}

func (e *EligibilityError) Error() string {
	return fmt.Sprintf("test attempt blocked: %s", e.Code)
}
