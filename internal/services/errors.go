package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrExternalTool  = errors.New("engine invocation error")
	ErrParse         = errors.New("parse error")
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation error")
	// ErrCacheInconsistency marks an artifact whose cache signal is present
	// while its content is missing or unreadable.
	ErrCacheInconsistency = errors.New("cache inconsistency")
	ErrCancelled          = errors.New("cancelled")
)

var markers = []error{
	ErrConfiguration,
	ErrExternalTool,
	ErrParse,
	ErrNotFound,
	ErrValidation,
	ErrCacheInconsistency,
	ErrCancelled,
}

// Outcome is the per-stage result kind recorded by the collection driver.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later outcome classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Details returns the sentinel marker carried by err and the remaining message.
func Details(err error) (error, string) {
	if err == nil {
		return nil, ""
	}
	msg := err.Error()
	for _, marker := range markers {
		if errors.Is(err, marker) {
			prefix := marker.Error() + ": "
			return marker, strings.TrimPrefix(msg, prefix)
		}
	}
	return nil, msg
}

// FailureKind maps a stage error to the outcome the driver should persist.
// Missing inputs and configuration problems skip the collection; everything
// else is a failure.
func FailureKind(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeCompleted
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrNotFound),
		errors.Is(err, ErrValidation), errors.Is(err, ErrCancelled):
		return OutcomeSkipped
	default:
		return OutcomeFailed
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "stage failure"
	}
	return strings.Join(parts, ": ")
}
