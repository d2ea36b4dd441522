package catalog

import "context"

// Failure describes a catalog query that was recovered to its empty value.
type Failure struct {
	Operation  string
	Path       string
	Reason     string
	StatusCode int
	Err        error
}

// FailureReporter receives every recovered failure. Implementations must not
// block the query for long and must not panic; their errors are their own.
type FailureReporter interface {
	ReportFailure(ctx context.Context, f Failure)
}

type nopReporter struct{}

func (nopReporter) ReportFailure(context.Context, Failure) {}
