package job

import (
	"errors"
	"fmt"
)

// Kind is a closed enumeration of the batch jobs the worker knows how to run.
type Kind int

const (
	// Unknown is the zero value; never a runnable job.
	Unknown Kind = iota
	// ComputeStatsByCustomer aggregates today's deals into daily per-customer
	// stat rows.
	ComputeStatsByCustomer
)

// ErrUnknownJob is returned when a job name does not map to any Kind.
var ErrUnknownJob = errors.New("unknown job")

// ParseKind maps a job name to its Kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "compute-stats-by-customer":
		return ComputeStatsByCustomer, nil
	default:
		return Unknown, fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
}

func (k Kind) String() string {
	switch k {
	case ComputeStatsByCustomer:
		return "compute-stats-by-customer"
	default:
		return "unknown"
	}
}
