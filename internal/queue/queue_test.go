package queue

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"applyflow/internal/match"
	"applyflow/internal/posting"
	"applyflow/internal/profile"
)

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func testPosting(title, company string) *posting.Posting {
	return &posting.Posting{
		Title:    title,
		Company:  company,
		Location: "Remote",
		URL:      "https://example.com/jobs/1",
	}
}

func enqueue(t *testing.T, q *Queue, title, company string, at time.Time) string {
	t.Helper()
	id, err := q.Enqueue(testPosting(title, company), nil, at, baseTime, nil, false)
	require.NoError(t, err)
	return id
}

func TestEnqueueRejectsLiveDuplicate(t *testing.T) {
	q := New()
	id := enqueue(t, q, "Go Developer", "Acme", baseTime)

	_, err := q.Enqueue(testPosting("Go Developer", "Acme"), nil, baseTime, baseTime, nil, false)
	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, id, dup.ID)
	assert.Equal(t, 1, q.Len())
}

func TestEnqueueReplacesFailedEntry(t *testing.T) {
	q := New()
	id := enqueue(t, q, "Go Developer", "Acme", baseTime)

	require.NoError(t, q.MarkDue(id))
	require.NoError(t, q.Start(id))
	state, err := q.Fail(id, "boom", baseTime.Add(time.Hour), 0)
	require.NoError(t, err)
	require.Equal(t, StateFailed, state)

	fresh, err := q.Enqueue(testPosting("Go Developer", "Acme"), nil, baseTime.Add(2*time.Hour), baseTime, nil, false)
	require.NoError(t, err)
	assert.Equal(t, id, fresh)
	assert.Equal(t, 1, q.Len())
	assert.Equal(t, StatePending, q.Get(fresh).State)
	assert.Zero(t, q.Get(fresh).AttemptCount)
}

func TestEnqueueRefusesBlacklistedResult(t *testing.T) {
	q := New()
	prof := &profile.Profile{Blacklist: []string{"Acme Corp"}}
	post := testPosting("Go Developer", "Acme Corp")

	res := match.Score(prof, post, nil)
	require.True(t, res.Blacklisted())

	_, err := q.Enqueue(post, res, baseTime, baseTime, nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blacklisted")
	assert.Zero(t, q.Len())
}

func TestEnqueueConsultsHistory(t *testing.T) {
	q := New()
	post := testPosting("Go Developer", "Acme")

	applied := func(posting.Identity) (string, bool) { return OutcomeOffer, true }
	_, err := q.Enqueue(post, nil, baseTime, baseTime, applied, true)
	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)

	rejected := func(posting.Identity) (string, bool) { return OutcomeRejected, true }
	_, err = q.Enqueue(post, nil, baseTime, baseTime, rejected, false)
	require.ErrorAs(t, err, &dup)

	_, err = q.Enqueue(post, nil, baseTime, baseTime, rejected, true)
	require.NoError(t, err)
}

func TestDueEntriesOrdering(t *testing.T) {
	q := New()
	late := enqueue(t, q, "Role C", "Gamma", baseTime.Add(30*time.Minute))
	first := enqueue(t, q, "Role A", "Alpha", baseTime)
	second := enqueue(t, q, "Role B", "Beta", baseTime)
	enqueue(t, q, "Role D", "Delta", baseTime.Add(2*time.Hour))

	due := q.DueEntries(baseTime.Add(time.Hour))
	require.Len(t, due, 3)
	// Same scheduled time orders by insertion.
	assert.Equal(t, first, due[0].ID)
	assert.Equal(t, second, due[1].ID)
	assert.Equal(t, late, due[2].ID)

	// Idempotent: reading due entries must not mutate anything.
	again := q.DueEntries(baseTime.Add(time.Hour))
	require.Len(t, again, 3)
	assert.Equal(t, StatePending, q.Get(first).State)
}

func TestHappyPathTransitions(t *testing.T) {
	q := New()
	id := enqueue(t, q, "Go Developer", "Acme", baseTime)

	require.NoError(t, q.MarkDue(id))
	require.NoError(t, q.Start(id))
	require.NoError(t, q.Complete(id, baseTime.Add(time.Minute)))

	e := q.Get(id)
	assert.Equal(t, StateApplied, e.State)
	assert.Equal(t, OutcomeApplied, e.Outcome)
	assert.Equal(t, baseTime.Add(time.Minute), e.AppliedAt)
	assert.Zero(t, e.AttemptCount)
}

func TestInvalidTransitionLeavesEntryUntouched(t *testing.T) {
	q := New()
	id := enqueue(t, q, "Go Developer", "Acme", baseTime)

	err := q.Start(id)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StatePending, invalid.From)
	assert.Equal(t, StateInFlight, invalid.To)

	e := q.Get(id)
	assert.Equal(t, StatePending, e.State)
	assert.Equal(t, baseTime, e.ScheduledAt)
}

func TestFailWithinBudgetReschedules(t *testing.T) {
	q := New()
	id := enqueue(t, q, "Go Developer", "Acme", baseTime)
	retryAt := baseTime.Add(45 * time.Minute)

	require.NoError(t, q.MarkDue(id))
	require.NoError(t, q.Start(id))
	state, err := q.Fail(id, "network blip", retryAt, 2)
	require.NoError(t, err)
	assert.Equal(t, StateRescheduled, state)

	e := q.Get(id)
	assert.Equal(t, 1, e.AttemptCount)
	assert.Equal(t, "network blip", e.LastError)
	assert.Equal(t, retryAt, e.ScheduledAt)
}

func TestRetryBudgetExhaustion(t *testing.T) {
	q := New()
	id := enqueue(t, q, "Go Developer", "Acme", baseTime)

	retryAt := baseTime
	for attempt := 1; attempt <= 2; attempt++ {
		retryAt = retryAt.Add(time.Hour)
		require.NoError(t, q.MarkDue(id))
		require.NoError(t, q.Start(id))
		state, err := q.Fail(id, "boom", retryAt, 2)
		require.NoError(t, err)
		require.Equal(t, StateRescheduled, state)
	}

	require.NoError(t, q.MarkDue(id))
	require.NoError(t, q.Start(id))
	state, err := q.Fail(id, "boom", retryAt.Add(time.Hour), 2)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, state)

	// Two retries allowed means the third failure is final.
	e := q.Get(id)
	assert.Equal(t, 3, e.AttemptCount)
	assert.True(t, IsTerminal(e.State))
}

func TestScheduledAtNeverMovesBackward(t *testing.T) {
	q := New()
	id := enqueue(t, q, "Go Developer", "Acme", baseTime.Add(time.Hour))

	require.NoError(t, q.MarkDue(id))
	require.NoError(t, q.Start(id))
	_, err := q.Fail(id, "boom", baseTime, 2)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)

	e := q.Get(id)
	assert.Equal(t, StateInFlight, e.State)
	assert.Zero(t, e.AttemptCount)
}

func TestRescheduleIsExemptFromMonotonicity(t *testing.T) {
	q := New()
	id := enqueue(t, q, "Go Developer", "Acme", baseTime.Add(2*time.Hour))

	require.NoError(t, q.Reschedule(id, baseTime))
	assert.Equal(t, baseTime, q.Get(id).ScheduledAt)

	require.NoError(t, q.MarkDue(id))
	require.NoError(t, q.Start(id))
	err := q.Reschedule(id, baseTime.Add(time.Hour))
	require.Error(t, err)
}

func TestSkipFromAnyNonTerminalState(t *testing.T) {
	q := New()
	a := enqueue(t, q, "Role A", "Alpha", baseTime)
	b := enqueue(t, q, "Role B", "Beta", baseTime)

	require.NoError(t, q.Skip(a))
	assert.Equal(t, StateSkipped, q.Get(a).State)

	require.NoError(t, q.MarkDue(b))
	require.NoError(t, q.Start(b))
	require.NoError(t, q.Skip(b))

	err := q.Skip(a)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
}

func TestSetOutcomeRequiresApplied(t *testing.T) {
	q := New()
	id := enqueue(t, q, "Go Developer", "Acme", baseTime)

	require.Error(t, q.SetOutcome(id, OutcomeInterview))

	require.NoError(t, q.MarkDue(id))
	require.NoError(t, q.Start(id))
	require.NoError(t, q.Complete(id, baseTime))
	require.NoError(t, q.SetOutcome(id, OutcomeInterview))
	assert.Equal(t, OutcomeInterview, q.Get(id).Outcome)
}

func TestNotFound(t *testing.T) {
	q := New()
	err := q.Skip("missing@nowhere")
	var notFound *NotFoundError
	require.True(t, errors.As(err, &notFound))
}

func TestValidateTransitionTable(t *testing.T) {
	require.NoError(t, validateTransition(StatePending, StateDue))
	require.NoError(t, validateTransition(StateRescheduled, StateDue))
	require.Error(t, validateTransition(StatePending, StateInFlight))
	require.Error(t, validateTransition(StateApplied, StateSkipped))
	require.Error(t, validateTransition(StateFailed, StateDue))
	require.Error(t, validateTransition(State("BOGUS"), StateDue))
}
