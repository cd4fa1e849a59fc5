// Package worker drives the submission loop: it claims due queue entries,
// prepares documents, hands them to a submitter and records the result.
// State is persisted after every transition so a crash never replays a
// submission.
package worker

import (
	"context"
	"errors"
	"os"
	"time"

	"go.uber.org/zap"

	"applyflow/internal/docgen"
	"applyflow/internal/history"
	"applyflow/internal/ledger"
	"applyflow/internal/match"
	"applyflow/internal/posting"
	"applyflow/internal/profile"
	"applyflow/internal/queue"
	"applyflow/internal/schedule"
	"applyflow/internal/store"
	"applyflow/internal/submit"
	"applyflow/internal/utils"
)

// LetterPolisher optionally rewrites a drafted cover letter before
// submission. A nil polisher leaves the template draft as is.
type LetterPolisher interface {
	Polish(ctx context.Context, draft string, post *posting.Posting, res *match.Result) (string, error)
}

type Worker struct {
	store     *store.Store
	docs      *docgen.Generator
	polisher  LetterPolisher
	submitter submit.Submitter
	schedCfg  schedule.Config
	logger    *zap.Logger

	submitTimeout time.Duration
	now           func() time.Time
}

type Options struct {
	Store         *store.Store
	Docs          *docgen.Generator
	Polisher      LetterPolisher
	Submitter     submit.Submitter
	Schedule      schedule.Config
	Logger        *zap.Logger
	SubmitTimeout time.Duration
	Now           func() time.Time
}

func New(opts Options) *Worker {
	w := &Worker{
		store:         opts.Store,
		docs:          opts.Docs,
		polisher:      opts.Polisher,
		submitter:     opts.Submitter,
		schedCfg:      opts.Schedule,
		logger:        opts.Logger,
		submitTimeout: opts.SubmitTimeout,
		now:           opts.Now,
	}
	if w.submitTimeout <= 0 {
		w.submitTimeout = 2 * time.Minute
	}
	if w.now == nil {
		w.now = time.Now
	}
	return w
}

// state bundles everything RunOnce loads and persists.
type state struct {
	queue   *queue.Queue
	history *history.History
	ledger  *ledger.Ledger
	profile *profile.Profile
}

// RunOnce processes every entry due at the time of the call, sequentially in
// pacing order. It returns the number of successful submissions.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	st, err := w.load()
	if err != nil {
		return 0, err
	}

	now := w.now()
	due := st.queue.DueEntries(now)
	if len(due) == 0 {
		w.logger.Info("no entries due", zap.Time("at", now))
		return 0, nil
	}

	w.logger.Info("processing due entries", zap.Int("count", len(due)))

	submitted := 0
	for _, entry := range due {
		if err := ctx.Err(); err != nil {
			return submitted, err
		}
		ok, err := w.process(ctx, entry.ID, st)
		if err != nil {
			return submitted, err
		}
		if ok {
			submitted++
		}
	}

	return submitted, nil
}

// Run keeps processing until the context is canceled, waking up once per
// interval.
func (w *Worker) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	for {
		if _, err := w.RunOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		if err := utils.WaitFor(ctx, interval); err != nil {
			return nil
		}
	}
}

// process runs one entry through claim, documents, submission and recording.
// Errors returned here are persistence failures; submission failures are
// absorbed into the entry state.
func (w *Worker) process(ctx context.Context, id string, st *state) (bool, error) {
	entry := st.queue.Get(id)
	if entry == nil {
		return false, &queue.NotFoundError{ID: id}
	}

	log := w.logger.With(zap.String("id", id), zap.Int("attempt", entry.AttemptCount+1))
	log.Info("processing entry",
		zap.String("title", entry.Posting.Title),
		zap.String("company", entry.Posting.Company),
	)

	if entry.State != queue.StateDue {
		if err := st.queue.MarkDue(id); err != nil {
			return false, err
		}
	}
	if err := st.queue.Start(id); err != nil {
		return false, err
	}
	if err := w.store.SaveQueue(st.queue); err != nil {
		return false, err
	}

	if entry.Match != nil {
		for _, skill := range entry.Match.RequiredSkills {
			st.ledger.Observe(skill, entry.Posting.Identity(), w.now())
		}
	}

	if err := w.ensureDocuments(ctx, entry, st.profile, log); err != nil {
		return false, w.fail(id, err.Error(), true, st, log)
	}

	res, err := w.submit(ctx, entry)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return false, err
		}
		retryable := true
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("submission timed out", zap.Duration("timeout", w.submitTimeout))
		}
		return false, w.fail(id, err.Error(), retryable, st, log)
	}
	if !res.Submitted {
		return false, w.fail(id, res.Reason, res.Retryable, st, log)
	}

	now := w.now()
	if err := st.queue.Complete(id, now); err != nil {
		return false, err
	}
	st.history.RecordApplication(entry.Posting, now)
	st.ledger.RecordOutcome(entry.Posting.Identity(), queue.OutcomeApplied)

	if err := w.persist(st); err != nil {
		return false, err
	}

	log.Info("application submitted",
		zap.String("submitter", w.submitter.Name()),
		zap.String("reason", res.Reason),
	)
	return true, nil
}

// ensureDocuments renders drafts for entries that do not carry them yet.
func (w *Worker) ensureDocuments(ctx context.Context, entry *queue.Entry, prof *profile.Profile, log *zap.Logger) error {
	if entry.ResumePath != "" && entry.CoverLetterPath != "" {
		return nil
	}

	drafts, err := w.docs.WriteDrafts(prof, entry.Posting, entry.Match)
	if err != nil {
		return err
	}

	if w.polisher != nil {
		draft, err := os.ReadFile(drafts.CoverLetterPath)
		if err != nil {
			return err
		}
		polished, err := w.polisher.Polish(ctx, string(draft), entry.Posting, entry.Match)
		if err != nil {
			// The template draft still works without the rewrite.
			log.Warn("cover letter polish failed, using draft", zap.Error(err))
		} else if err := os.WriteFile(drafts.CoverLetterPath, []byte(polished), 0o644); err != nil {
			return err
		}
	}

	entry.ResumePath = drafts.ResumePath
	entry.CoverLetterPath = drafts.CoverLetterPath
	return nil
}

func (w *Worker) submit(ctx context.Context, entry *queue.Entry) (*submit.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, w.submitTimeout)
	defer cancel()
	return w.submitter.Submit(ctx, entry)
}

// fail records a failed attempt against the retry budget. Non-retryable
// failures exhaust the budget immediately.
func (w *Worker) fail(id, reason string, retryable bool, st *state, log *zap.Logger) error {
	maxRetries := w.schedCfg.MaxRetries
	if !retryable {
		maxRetries = 0
	}

	retryAt := schedule.RetrySlot(w.now().Add(w.schedCfg.RetryDelay), st.queue.ScheduledTimes(), w.schedCfg)

	final, err := st.queue.Fail(id, reason, retryAt, maxRetries)
	if err != nil {
		return err
	}
	if err := w.store.SaveQueue(st.queue); err != nil {
		return err
	}

	if final == queue.StateFailed {
		entry := st.queue.Get(id)
		exhausted := &queue.RetryExhaustedError{ID: id, Attempts: entry.AttemptCount}
		log.Error("entry failed permanently", zap.String("reason", reason), zap.Error(exhausted))
		return nil
	}

	log.Warn("submission failed, rescheduled",
		zap.String("reason", reason),
		zap.Time("retry_at", retryAt),
	)
	return nil
}

func (w *Worker) load() (*state, error) {
	q, err := w.store.LoadQueue()
	if err != nil {
		return nil, err
	}
	hist, err := w.store.LoadHistory()
	if err != nil {
		return nil, err
	}
	led, err := w.store.LoadLedger()
	if err != nil {
		return nil, err
	}
	prof, err := w.store.LoadProfile()
	if err != nil {
		return nil, err
	}
	return &state{queue: q, history: hist, ledger: led, profile: prof}, nil
}

func (w *Worker) persist(st *state) error {
	if err := w.store.SaveQueue(st.queue); err != nil {
		return err
	}
	if err := w.store.SaveHistory(st.history); err != nil {
		return err
	}
	return w.store.SaveLedger(st.ledger)
}
