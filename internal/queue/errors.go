package queue

import "fmt"

// DuplicateError rejects an enqueue of an already-pursued posting.
type DuplicateError struct {
	ID     string
	Reason string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate entry %q: %s", e.ID, e.Reason)
}

// InvalidTransitionError reports an illegal state change. The entry is left
// untouched.
type InvalidTransitionError struct {
	ID   string
	From State
	To   State
	Err  error
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("entry %q: invalid transition %s to %s", e.ID, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return e.Err }

// RetryExhaustedError is surfaced for observability when an entry reaches
// FAILED. It is never retried further.
type RetryExhaustedError struct {
	ID       string
	Attempts int
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("entry %q failed after %d attempts", e.ID, e.Attempts)
}

// NotFoundError reports a lookup for an unknown entry id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("entry %q not found", e.ID)
}
