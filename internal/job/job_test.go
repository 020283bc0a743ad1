package job

import (
	"errors"
	"testing"
)

func TestParseKind_KnownJob(t *testing.T) {
	kind, err := ParseKind("compute-stats-by-customer")
	if err != nil {
		t.Fatalf("Failed to parse job: %v", err)
	}
	if kind != ComputeStatsByCustomer {
		t.Errorf("Expected ComputeStatsByCustomer, got %v", kind)
	}
	if kind.String() != "compute-stats-by-customer" {
		t.Errorf("Expected round-trip name, got %s", kind.String())
	}
}

func TestParseKind_UnknownJob(t *testing.T) {
	_, err := ParseKind("reticulate-splines")
	if !errors.Is(err, ErrUnknownJob) {
		t.Errorf("Expected ErrUnknownJob, got %v", err)
	}
}
