// Package queue tracks a posting's journey from enqueue through scheduling
// to a resolved submission. Every transition is validated against the state
// table and applied atomically: state, scheduled_at and attempt_count change
// together or not at all.
package queue

import (
	"fmt"
	"sort"
	"time"

	"applyflow/internal/match"
	"applyflow/internal/posting"
)

// Outcomes recordable against an applied entry.
const (
	OutcomeApplied    = "applied"
	OutcomeInterview  = "interview"
	OutcomeOffer      = "offer"
	OutcomeRejected   = "rejected"
	OutcomeNoResponse = "no_response"
)

// Retryable reports whether a history outcome leaves the door open for a
// later re-enqueue with an explicit override.
func Retryable(outcome string) bool {
	return outcome == OutcomeRejected || outcome == OutcomeNoResponse
}

// Entry is the central mutable entity of the system.
type Entry struct {
	ID              string           `yaml:"id"`
	Seq             int              `yaml:"seq"`
	Posting         *posting.Posting `yaml:"posting"`
	Match           *match.Result    `yaml:"match,omitempty"`
	ResumePath      string           `yaml:"resume_path,omitempty"`
	CoverLetterPath string           `yaml:"cover_letter_path,omitempty"`
	State           State            `yaml:"state"`
	ScheduledAt     time.Time        `yaml:"scheduled_at"`
	AttemptCount    int              `yaml:"attempt_count"`
	LastError       string           `yaml:"last_error,omitempty"`
	Outcome         string           `yaml:"outcome,omitempty"`
	EnqueuedAt      time.Time        `yaml:"enqueued_at"`
	AppliedAt       time.Time        `yaml:"applied_at,omitempty"`
}

// OutcomeLookup is the narrow History surface consulted during enqueue. It
// returns the recorded outcome (possibly empty) for a posting identity.
type OutcomeLookup func(id posting.Identity) (outcome string, ok bool)

// Queue is the persisted set of pending, active and resolved entries.
type Queue struct {
	Entries []*Entry `yaml:"entries"`
	NextSeq int      `yaml:"next_seq"`
}

func New() *Queue {
	return &Queue{}
}

func (q *Queue) Len() int {
	return len(q.Entries)
}

// Get returns the entry with the given id, or nil.
func (q *Queue) Get(id string) *Entry {
	for _, e := range q.Entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// Enqueue admits a scored posting into the queue. Blacklist short-circuit
// results are refused outright. It consults both the live queue and the
// application history for duplicates; a prior rejected or no_response
// outcome may be retried only with the reapply override.
func (q *Queue) Enqueue(post *posting.Posting, res *match.Result, scheduledAt, now time.Time, history OutcomeLookup, reapply bool) (string, error) {
	id := post.ID()

	if res != nil && res.Blacklisted() {
		return "", fmt.Errorf("refusing to enqueue %q: company is blacklisted", id)
	}

	if existing := q.Get(id); existing != nil {
		if existing.State != StateFailed && existing.State != StateSkipped {
			return "", &DuplicateError{ID: id, Reason: "already queued in state " + string(existing.State)}
		}
		// Terminal failure or skip: a fresh enqueue replaces the entry.
		q.remove(id)
	}

	if history != nil {
		if outcome, ok := history(post.Identity()); ok {
			if !Retryable(outcome) {
				return "", &DuplicateError{ID: id, Reason: "already pursued per history"}
			}
			if !reapply {
				return "", &DuplicateError{ID: id, Reason: "previous outcome " + outcome + "; re-enqueue requires the reapply override"}
			}
		}
	}

	entry := &Entry{
		ID:          id,
		Seq:         q.NextSeq,
		Posting:     post,
		Match:       res,
		State:       StatePending,
		ScheduledAt: scheduledAt,
		EnqueuedAt:  now,
	}
	q.NextSeq++
	q.Entries = append(q.Entries, entry)
	return id, nil
}

func (q *Queue) remove(id string) {
	for idx, e := range q.Entries {
		if e.ID == id {
			q.Entries = append(q.Entries[:idx], q.Entries[idx+1:]...)
			return
		}
	}
}

// DueEntries returns entries ready for action at the given instant, oldest
// scheduled time first, insertion order breaking ties.
func (q *Queue) DueEntries(now time.Time) []*Entry {
	var due []*Entry
	for _, e := range q.Entries {
		switch e.State {
		case StatePending, StateDue, StateRescheduled:
			if !e.ScheduledAt.After(now) {
				due = append(due, e)
			}
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		if !due[i].ScheduledAt.Equal(due[j].ScheduledAt) {
			return due[i].ScheduledAt.Before(due[j].ScheduledAt)
		}
		return due[i].Seq < due[j].Seq
	})
	return due
}

// ScheduledTimes returns the action times of all entries still waiting for
// submission. The scheduler uses them to keep retries outside the pacing gap.
func (q *Queue) ScheduledTimes() []time.Time {
	var times []time.Time
	for _, e := range q.Entries {
		switch e.State {
		case StatePending, StateDue, StateRescheduled:
			times = append(times, e.ScheduledAt)
		}
	}
	return times
}

// advance validates and applies a transition atomically. The mutate callback
// receives a copy of the entry; it is written back only when the transition
// and the scheduled_at monotonicity invariant both hold.
func (q *Queue) advance(id string, to State, mutate func(next *Entry)) error {
	e := q.Get(id)
	if e == nil {
		return &NotFoundError{ID: id}
	}
	if err := validateTransition(e.State, to); err != nil {
		return &InvalidTransitionError{ID: id, From: e.State, To: to, Err: err}
	}

	next := *e
	next.State = to
	if mutate != nil {
		mutate(&next)
	}
	if next.ScheduledAt.Before(e.ScheduledAt) {
		return &InvalidTransitionError{ID: id, From: e.State, To: to}
	}

	*e = next
	return nil
}

// MarkDue moves a pending or rescheduled entry to DUE once its time has come.
func (q *Queue) MarkDue(id string) error {
	return q.advance(id, StateDue, nil)
}

// Start claims a due entry for submission. At most one in-flight submission
// per entry at any time; a concurrent skip wins because the transition out
// of SKIPPED is rejected here.
func (q *Queue) Start(id string) error {
	return q.advance(id, StateInFlight, nil)
}

// Complete records a successful submission. The attempt counter only tracks
// failed attempts, so it never advances here.
func (q *Queue) Complete(id string, now time.Time) error {
	return q.advance(id, StateApplied, func(next *Entry) {
		next.AppliedAt = now
		next.LastError = ""
		next.Outcome = OutcomeApplied
	})
}

// Fail records a failed submission attempt. Entries under the retry budget
// move to RESCHEDULED at retryAt; exhausted entries land in FAILED. The
// resulting state is returned so callers can surface retry exhaustion.
func (q *Queue) Fail(id, reason string, retryAt time.Time, maxRetries int) (State, error) {
	e := q.Get(id)
	if e == nil {
		return "", &NotFoundError{ID: id}
	}

	to := StateRescheduled
	if e.AttemptCount >= maxRetries {
		to = StateFailed
	}

	err := q.advance(id, to, func(next *Entry) {
		next.AttemptCount++
		next.LastError = reason
		if to == StateRescheduled {
			next.ScheduledAt = retryAt
		}
	})
	if err != nil {
		return "", err
	}
	return to, nil
}

// Skip terminates a non-terminal entry at the user's request.
func (q *Queue) Skip(id string) error {
	return q.advance(id, StateSkipped, nil)
}

// Reschedule moves the action time of a waiting entry. This is the explicit
// user override exempt from the monotonic scheduled_at invariant.
func (q *Queue) Reschedule(id string, at time.Time) error {
	e := q.Get(id)
	if e == nil {
		return &NotFoundError{ID: id}
	}
	switch e.State {
	case StatePending, StateDue, StateRescheduled:
		e.ScheduledAt = at
		return nil
	default:
		return &InvalidTransitionError{ID: id, From: e.State, To: e.State}
	}
}

// SetOutcome annotates an applied entry with its eventual result.
func (q *Queue) SetOutcome(id, outcome string) error {
	e := q.Get(id)
	if e == nil {
		return &NotFoundError{ID: id}
	}
	if e.State != StateApplied {
		return &InvalidTransitionError{ID: id, From: e.State, To: StateApplied}
	}
	e.Outcome = outcome
	return nil
}
