// Package submit carries an application over the line once its slot is due.
// Submitters report whether the attempt can be retried so the queue can
// reschedule transient failures instead of burning the entry.
package submit

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"go.uber.org/zap"

	"applyflow/internal/queue"
)

// Result reports the outcome of one submission attempt.
type Result struct {
	Submitted bool
	Reason    string
	Retryable bool
}

type Submitter interface {
	Name() string
	Submit(ctx context.Context, entry *queue.Entry) (*Result, error)
}

// validate rejects entries that cannot be submitted at all. These failures
// are permanent, retrying will not produce the missing inputs.
func validate(entry *queue.Entry) *Result {
	if entry.Posting == nil || strings.TrimSpace(entry.Posting.URL) == "" {
		return &Result{Reason: "posting has no application url", Retryable: false}
	}
	if entry.ResumePath != "" {
		if _, err := os.Stat(entry.ResumePath); err != nil {
			return &Result{Reason: fmt.Sprintf("resume file missing: %s", entry.ResumePath), Retryable: false}
		}
	}
	return nil
}

// DryRun logs what would be submitted without touching anything external.
type DryRun struct {
	logger *zap.Logger
}

func NewDryRun(logger *zap.Logger) *DryRun {
	return &DryRun{logger: logger}
}

func (d *DryRun) Name() string { return "dry-run" }

func (d *DryRun) Submit(_ context.Context, entry *queue.Entry) (*Result, error) {
	if res := validate(entry); res != nil {
		return res, nil
	}

	d.logger.Info("dry-run submission",
		zap.String("id", entry.ID),
		zap.String("url", entry.Posting.URL),
		zap.String("resume", entry.ResumePath),
		zap.String("cover_letter", entry.CoverLetterPath),
	)
	return &Result{Submitted: true, Reason: "dry-run"}, nil
}

// Manual walks the operator through submitting by hand. It prints the
// application URL and draft paths, then asks whether the submission went
// through. Declining is retryable so the entry can come back later.
type Manual struct {
	logger *zap.Logger
}

func NewManual(logger *zap.Logger) *Manual {
	return &Manual{logger: logger}
}

func (m *Manual) Name() string { return "manual" }

func (m *Manual) Submit(ctx context.Context, entry *queue.Entry) (*Result, error) {
	if res := validate(entry); res != nil {
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fmt.Printf("\nApply now: %s\n", entry.Posting.URL)
	if entry.ResumePath != "" {
		fmt.Printf("Resume draft: %s\n", entry.ResumePath)
	}
	if entry.CoverLetterPath != "" {
		fmt.Printf("Cover letter draft: %s\n", entry.CoverLetterPath)
	}

	prompt := promptui.Select{
		Label: fmt.Sprintf("Did the application for %q go through", entry.ID),
		Items: []string{"submitted", "skip for now", "cannot apply"},
	}

	_, answer, err := prompt.Run()
	if err != nil {
		return nil, fmt.Errorf("read submission confirmation: %w", err)
	}

	switch answer {
	case "submitted":
		return &Result{Submitted: true, Reason: "confirmed by operator"}, nil
	case "skip for now":
		return &Result{Reason: "deferred by operator", Retryable: true}, nil
	default:
		return &Result{Reason: "rejected by operator", Retryable: false}, nil
	}
}
