package catalog

// Outcome is the settled state of a catalog query.
type Outcome int

const (
	// Succeeded means the upstream answered 200 and the body decoded.
	Succeeded Outcome = iota + 1
	// Failed means the query was recovered to its empty value.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "pending"
	}
}

// Result carries the value of a catalog query together with how it settled.
// On failure Value holds the operation's empty value and Err the reason, so
// callers that only need the value can ignore everything else.
type Result[T any] struct {
	Value   T
	Outcome Outcome
	Err     error
}

// OK reports whether the query succeeded.
func (r Result[T]) OK() bool {
	return r.Outcome == Succeeded
}

// Degraded reports whether Value is an empty fallback for a failed query.
func (r Result[T]) Degraded() bool {
	return r.Outcome == Failed
}

func succeeded[T any](v T) Result[T] {
	return Result[T]{Value: v, Outcome: Succeeded}
}

func failed[T any](empty T, err error) Result[T] {
	return Result[T]{Value: empty, Outcome: Failed, Err: err}
}
