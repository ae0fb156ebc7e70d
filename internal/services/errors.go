package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel markers used to classify failures. Wrap tags errors with one of
// these so callers can branch on category without string matching.
var (
	ErrFileAccess         = errors.New("file access error")
	ErrParser             = errors.New("parser error")
	ErrTemplate           = errors.New("template error")
	ErrResourceConstraint = errors.New("resource constraint error")
	ErrTimeout            = errors.New("timeout")
)

// Category identifies which subsystem a failure originated from.
type Category string

const (
	CategoryFileAccess         Category = "file_access"
	CategoryParser             Category = "parser"
	CategoryTemplate           Category = "template"
	CategoryResourceConstraint Category = "resource_constraint"
	CategoryGeneral            Category = "general"
)

// Severity orders failures by how much of the run they endanger.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the lowercase label used in logs and API payloads.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// RecoveryType names the action a caller can take after a failure.
type RecoveryType string

const (
	RecoveryRetry    RecoveryType = "retry"
	RecoverySkip     RecoveryType = "skip"
	RecoveryFallback RecoveryType = "fallback"
)

// RecoveryAction is a hint attached to an ErrorRecord.
type RecoveryAction struct {
	Type   RecoveryType `json:"type"`
	Detail string       `json:"detail,omitempty"`
}

// ErrorRecord captures one failure at the point it happened. Records are
// append-only; they are accumulated into per-run error logs and never
// mutated after creation.
type ErrorRecord struct {
	Category        Category         `json:"category"`
	Severity        Severity         `json:"severity"`
	Message         string           `json:"message"`
	Path            string           `json:"path,omitempty"`
	Stage           string           `json:"stage,omitempty"`
	OccurredAt      time.Time        `json:"occurred_at"`
	RecoveryActions []RecoveryAction `json:"recovery_actions,omitempty"`
}

// NewRecord builds an ErrorRecord from an error, deriving category and
// severity from its sentinel marker when none of the callers override them.
func NewRecord(err error, path, stage string, actions ...RecoveryAction) ErrorRecord {
	message := "unknown failure"
	if err != nil {
		message = err.Error()
	}
	return ErrorRecord{
		Category:        CategoryOf(err),
		Severity:        SeverityOf(err),
		Message:         message,
		Path:            path,
		Stage:           stage,
		OccurredAt:      time.Now().UTC(),
		RecoveryActions: actions,
	}
}

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrParser
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// CategoryOf maps an error to its taxonomy category. Unclassified errors are
// general failures.
func CategoryOf(err error) Category {
	switch {
	case err == nil:
		return CategoryGeneral
	case errors.Is(err, ErrFileAccess):
		return CategoryFileAccess
	case errors.Is(err, ErrParser), errors.Is(err, ErrTimeout):
		return CategoryParser
	case errors.Is(err, ErrTemplate):
		return CategoryTemplate
	case errors.Is(err, ErrResourceConstraint):
		return CategoryResourceConstraint
	default:
		return CategoryGeneral
	}
}

// SeverityOf derives a default severity from an error's marker. Resource
// exhaustion is recoverable once headroom returns, so it stays medium;
// missing files rank high because the path cannot be documented at all.
func SeverityOf(err error) Severity {
	switch {
	case err == nil:
		return SeverityLow
	case errors.Is(err, ErrFileAccess):
		return SeverityHigh
	case errors.Is(err, ErrTimeout):
		return SeverityMedium
	case errors.Is(err, ErrResourceConstraint):
		return SeverityMedium
	case errors.Is(err, ErrParser):
		return SeverityMedium
	case errors.Is(err, ErrTemplate):
		return SeverityMedium
	default:
		return SeverityMedium
	}
}

// Retryable reports whether the failure is worth retrying with the same
// analyzer. Validation-style failures are not; timeouts and resource
// constraints are.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrResourceConstraint) ||
		errors.Is(err, ErrParser) ||
		errors.Is(err, ErrFileAccess)
}

// MaxSeverity returns the highest severity among the provided records.
func MaxSeverity(records []ErrorRecord) Severity {
	max := SeverityLow
	for _, record := range records {
		if record.Severity > max {
			max = record.Severity
		}
	}
	return max
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
