package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"applyflow/internal/docgen"
	"applyflow/internal/match"
	"applyflow/internal/posting"
	"applyflow/internal/profile"
	"applyflow/internal/queue"
	"applyflow/internal/schedule"
	"applyflow/internal/store"
	"applyflow/internal/submit"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type stubSubmitter struct {
	results []*submit.Result
	err     error
	calls   int
}

func (s *stubSubmitter) Name() string { return "stub" }

func (s *stubSubmitter) Submit(_ context.Context, _ *queue.Entry) (*submit.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	res := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}
	return res, nil
}

type fixture struct {
	store     *store.Store
	worker    *Worker
	submitter *stubSubmitter
}

func newFixture(t *testing.T, sub *stubSubmitter) *fixture {
	t.Helper()

	st, err := store.Open(t.TempDir())
	require.NoError(t, err)

	prof := &profile.Profile{Name: "Sam Candidate", Email: "sam@example.com"}
	prof.AddSkill("Go", testNow)
	require.NoError(t, st.SaveProfile(prof))

	w := New(Options{
		Store:     st,
		Docs:      docgen.New(t.TempDir()),
		Submitter: sub,
		Schedule: schedule.Config{
			MinGap:       10 * time.Minute,
			MaxPerWindow: 20,
			Window:       24 * time.Hour,
			RetryDelay:   45 * time.Minute,
			MaxRetries:   2,
		},
		Logger: zap.NewNop(),
		Now:    func() time.Time { return testNow },
	})

	return &fixture{store: st, worker: w, submitter: sub}
}

func (f *fixture) enqueue(t *testing.T, title, company string, at time.Time) string {
	t.Helper()

	q, err := f.store.LoadQueue()
	require.NoError(t, err)

	post := &posting.Posting{
		Title:       title,
		Company:     company,
		Location:    "Remote",
		URL:         "https://example.com/jobs/1",
		Description: "Experience with Go.",
	}
	res := &match.Result{Score: 85, RequiredSkills: []string{"Go"}}

	id, err := q.Enqueue(post, res, at, at, nil, false)
	require.NoError(t, err)
	require.NoError(t, f.store.SaveQueue(q))
	return id
}

func TestRunOnceSubmitsDueEntry(t *testing.T) {
	f := newFixture(t, &stubSubmitter{results: []*submit.Result{{Submitted: true, Reason: "ok"}}})
	id := f.enqueue(t, "Go Developer", "Acme", testNow.Add(-time.Minute))

	submitted, err := f.worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, submitted)

	q, err := f.store.LoadQueue()
	require.NoError(t, err)
	e := q.Get(id)
	require.NotNil(t, e)
	assert.Equal(t, queue.StateApplied, e.State)
	assert.Equal(t, queue.OutcomeApplied, e.Outcome)
	assert.True(t, e.AppliedAt.Equal(testNow))
	assert.NotEmpty(t, e.ResumePath)
	assert.NotEmpty(t, e.CoverLetterPath)

	hist, err := f.store.LoadHistory()
	require.NoError(t, err)
	assert.True(t, hist.HasApplied(e.Posting.Identity()))

	led, err := f.store.LoadLedger()
	require.NoError(t, err)
	assert.True(t, led.Knows("Go"))
}

func TestRunOnceNothingDue(t *testing.T) {
	f := newFixture(t, &stubSubmitter{})
	f.enqueue(t, "Go Developer", "Acme", testNow.Add(time.Hour))

	submitted, err := f.worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, submitted)
	assert.Zero(t, f.submitter.calls)
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	f := newFixture(t, &stubSubmitter{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- f.worker.Run(ctx, 10*time.Millisecond) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
	assert.Zero(t, f.submitter.calls)
}

func TestRunOnceRetryableFailureReschedules(t *testing.T) {
	f := newFixture(t, &stubSubmitter{results: []*submit.Result{{Reason: "site down", Retryable: true}}})
	id := f.enqueue(t, "Go Developer", "Acme", testNow.Add(-time.Minute))

	submitted, err := f.worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, submitted)

	q, err := f.store.LoadQueue()
	require.NoError(t, err)
	e := q.Get(id)
	assert.Equal(t, queue.StateRescheduled, e.State)
	assert.Equal(t, 1, e.AttemptCount)
	assert.Equal(t, "site down", e.LastError)
	assert.False(t, e.ScheduledAt.Before(testNow.Add(45*time.Minute)))
}

func TestRunOnceNonRetryableFailureIsFinal(t *testing.T) {
	f := newFixture(t, &stubSubmitter{results: []*submit.Result{{Reason: "no apply url", Retryable: false}}})
	id := f.enqueue(t, "Go Developer", "Acme", testNow.Add(-time.Minute))

	_, err := f.worker.RunOnce(context.Background())
	require.NoError(t, err)

	q, err := f.store.LoadQueue()
	require.NoError(t, err)
	e := q.Get(id)
	assert.Equal(t, queue.StateFailed, e.State)
	assert.Equal(t, 1, e.AttemptCount)
}

func TestRetryBudgetExhaustsAcrossRuns(t *testing.T) {
	f := newFixture(t, &stubSubmitter{results: []*submit.Result{{Reason: "flaky", Retryable: true}}})
	id := f.enqueue(t, "Go Developer", "Acme", testNow.Add(-time.Minute))

	for i := 0; i < 3; i++ {
		_, err := f.worker.RunOnce(context.Background())
		require.NoError(t, err)

		// Pull the retry back to now so the next run picks it up again.
		q, err := f.store.LoadQueue()
		require.NoError(t, err)
		if q.Get(id).State == queue.StateRescheduled {
			require.NoError(t, q.Reschedule(id, testNow.Add(-time.Minute)))
			require.NoError(t, f.store.SaveQueue(q))
		}
	}

	q, err := f.store.LoadQueue()
	require.NoError(t, err)
	e := q.Get(id)
	assert.Equal(t, queue.StateFailed, e.State)
	assert.Equal(t, 3, e.AttemptCount)
	assert.Equal(t, 3, f.submitter.calls)
}

func TestSubmitterErrorCountsAsAttempt(t *testing.T) {
	f := newFixture(t, &stubSubmitter{err: errors.New("connection reset")})
	id := f.enqueue(t, "Go Developer", "Acme", testNow.Add(-time.Minute))

	_, err := f.worker.RunOnce(context.Background())
	require.NoError(t, err)

	q, err := f.store.LoadQueue()
	require.NoError(t, err)
	e := q.Get(id)
	assert.Equal(t, queue.StateRescheduled, e.State)
	assert.Equal(t, 1, e.AttemptCount)
	assert.Contains(t, e.LastError, "connection reset")
}

func TestRunOnceProcessesInPacingOrder(t *testing.T) {
	f := newFixture(t, &stubSubmitter{results: []*submit.Result{{Submitted: true}}})
	first := f.enqueue(t, "Role A", "Alpha", testNow.Add(-2*time.Hour))
	second := f.enqueue(t, "Role B", "Beta", testNow.Add(-time.Hour))

	submitted, err := f.worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, submitted)

	q, err := f.store.LoadQueue()
	require.NoError(t, err)
	a, b := q.Get(first), q.Get(second)
	assert.Equal(t, queue.StateApplied, a.State)
	assert.Equal(t, queue.StateApplied, b.State)
}
