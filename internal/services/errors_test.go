package services

import (
	"errors"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("boom")
	err := Wrap(ErrParser, "executor", "run", "primary analyzer failed", base)

	if !errors.Is(err, ErrParser) {
		t.Fatalf("expected ErrParser marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped base error, got %v", err)
	}
}

func TestCategoryOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Category
	}{
		{"file access", Wrap(ErrFileAccess, "cache", "stat", "", nil), CategoryFileAccess},
		{"parser", Wrap(ErrParser, "executor", "run", "", nil), CategoryParser},
		{"timeout maps to parser", Wrap(ErrTimeout, "executor", "run", "", nil), CategoryParser},
		{"template", Wrap(ErrTemplate, "generator", "render", "", nil), CategoryTemplate},
		{"resource", Wrap(ErrResourceConstraint, "monitor", "gate", "", nil), CategoryResourceConstraint},
		{"unclassified", errors.New("boom"), CategoryGeneral},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CategoryOf(tc.err); got != tc.want {
				t.Errorf("CategoryOf = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewRecordDerivesFields(t *testing.T) {
	err := Wrap(ErrFileAccess, "analyzer", "read", "permission denied", nil)
	record := NewRecord(err, "/src/a.go", "analyze", RecoveryAction{Type: RecoverySkip})

	if record.Category != CategoryFileAccess {
		t.Errorf("category = %q, want %q", record.Category, CategoryFileAccess)
	}
	if record.Severity != SeverityHigh {
		t.Errorf("severity = %v, want %v", record.Severity, SeverityHigh)
	}
	if record.Path != "/src/a.go" {
		t.Errorf("path = %q", record.Path)
	}
	if len(record.RecoveryActions) != 1 || record.RecoveryActions[0].Type != RecoverySkip {
		t.Errorf("recovery actions = %+v", record.RecoveryActions)
	}
	if record.OccurredAt.IsZero() {
		t.Error("occurred_at not set")
	}
}

func TestMaxSeverity(t *testing.T) {
	records := []ErrorRecord{
		{Severity: SeverityLow},
		{Severity: SeverityCritical},
		{Severity: SeverityMedium},
	}
	if got := MaxSeverity(records); got != SeverityCritical {
		t.Errorf("MaxSeverity = %v, want %v", got, SeverityCritical)
	}
	if got := MaxSeverity(nil); got != SeverityLow {
		t.Errorf("MaxSeverity(nil) = %v, want %v", got, SeverityLow)
	}
}
