// Package history keeps the durable record of every job previously applied
// to. Records are append-only: once written they only ever gain an outcome
// update. The queue consults this record to reject re-enqueues.
package history

import (
	"time"

	"applyflow/internal/posting"
)

// Record describes a single completed application.
type Record struct {
	Identity  posting.Identity `yaml:"identity"`
	Title     string           `yaml:"title"`
	Company   string           `yaml:"company"`
	URL       string           `yaml:"url,omitempty"`
	AppliedAt time.Time        `yaml:"applied_at"`
	Outcome   string           `yaml:"outcome,omitempty"`
}

// History is the persisted application log.
type History struct {
	Records []*Record `yaml:"records"`
}

func New() *History {
	return &History{}
}

// HasApplied reports whether the posting identity was ever actioned.
func (h *History) HasApplied(id posting.Identity) bool {
	return h.find(id) != nil
}

// Lookup returns the recorded outcome for the identity. ok is false when the
// posting was never applied to.
func (h *History) Lookup(id posting.Identity) (string, bool) {
	if r := h.find(id); r != nil {
		return r.Outcome, true
	}
	return "", false
}

func (h *History) find(id posting.Identity) *Record {
	for _, r := range h.Records {
		if r.Identity == id {
			return r
		}
	}
	return nil
}

// RecordApplication appends a record for the posting, or refreshes the
// applied timestamp when a reapply override led to a second submission.
func (h *History) RecordApplication(post *posting.Posting, appliedAt time.Time) *Record {
	if existing := h.find(post.Identity()); existing != nil {
		existing.AppliedAt = appliedAt
		existing.Outcome = ""
		return existing
	}
	r := &Record{
		Identity:  post.Identity(),
		Title:     post.Title,
		Company:   post.Company,
		URL:       post.URL,
		AppliedAt: appliedAt,
	}
	h.Records = append(h.Records, r)
	return r
}

// RecordOutcome appends an outcome update to an existing record.
func (h *History) RecordOutcome(id posting.Identity, outcome string) bool {
	if r := h.find(id); r != nil {
		r.Outcome = outcome
		return true
	}
	return false
}

func (h *History) Len() int {
	return len(h.Records)
}
