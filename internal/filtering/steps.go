package filtering

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"applyflow/internal/match"
	"applyflow/internal/posting"
	"applyflow/internal/queue"
)

type appliedHistoryFilter struct {
	ignore bool
}

// NewAppliedHistory creates a filter that removes postings already recorded
// in the application history. The ignore flag keeps them (force mode).
func NewAppliedHistory(ignore bool) Filter {
	return &appliedHistoryFilter{ignore: ignore}
}

func (f *appliedHistoryFilter) Name() string { return "applied_history" }

func (f *appliedHistoryFilter) Disable(string) {}

func (f *appliedHistoryFilter) IsEnabled() bool { return true }

func (f *appliedHistoryFilter) Validate(deps Deps) error {
	if deps.History == nil {
		return fmt.Errorf("history is required")
	}
	return nil
}

func (f *appliedHistoryFilter) Apply(_ context.Context, deps Deps, p *posting.Postings) (*posting.Postings, Step, error) {
	initial := p.Len()
	if f.ignore {
		if deps.Logger != nil {
			deps.Logger.Info("keeping already applied postings", zap.String("reason", "force flag is set"))
		}
		return p, Step{Initial: initial, Dropped: 0, Left: p.Len()}, nil
	}

	var targets []string
	for _, item := range p.Items {
		if outcome, ok := deps.History.Lookup(item.Identity()); ok && !queue.Retryable(outcome) {
			targets = append(targets, string(item.Identity()))
		}
	}

	excluded := p.Exclude(posting.FieldIdentity, targets)
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding postings based on application history",
			zap.Strings("excluded_postings", excluded),
			zap.Int("postings_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}

func (f *appliedHistoryFilter) Status() Status {
	reason := ""
	if f.ignore {
		reason = "skip requested via flag"
	}
	return Status{
		Name:    f.Name(),
		Enabled: true,
		Reason:  reason,
		Details: map[string]string{"exclude_applied": strconv.FormatBool(!f.ignore)},
	}
}

type blacklistFilter struct{}

// NewBlacklist creates a filter that removes postings from blacklisted
// employers before they reach the scorer.
func NewBlacklist() Filter {
	return &blacklistFilter{}
}

func (f *blacklistFilter) Name() string { return "blacklist" }

func (f *blacklistFilter) Disable(string) {}

func (f *blacklistFilter) IsEnabled() bool { return true }

func (f *blacklistFilter) Validate(deps Deps) error {
	if deps.Profile == nil {
		return fmt.Errorf("profile is required")
	}
	return nil
}

func (f *blacklistFilter) Apply(_ context.Context, deps Deps, p *posting.Postings) (*posting.Postings, Step, error) {
	initial := p.Len()
	var targets []string
	for _, item := range p.Items {
		if deps.Profile.Blacklisted(item.Company) {
			targets = append(targets, string(item.Identity()))
		}
	}

	excluded := p.Exclude(posting.FieldIdentity, targets)
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding postings by blacklisted employers",
			zap.Strings("excluded_postings", excluded),
			zap.Int("postings_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}

func (f *blacklistFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: true}
}

type aggregatorFilter struct {
	disabled bool
	reason   string
}

// NewAggregator creates a filter that drops leads from third-party listing
// sites, keeping only company-owned application pages.
func NewAggregator(enabled bool) Filter {
	f := &aggregatorFilter{}
	if !enabled {
		f.Disable("direct-only mode not requested")
	}
	return f
}

func (f *aggregatorFilter) Name() string { return "aggregator" }

func (f *aggregatorFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *aggregatorFilter) IsEnabled() bool { return !f.disabled }

func (f *aggregatorFilter) Validate(Deps) error { return nil }

func (f *aggregatorFilter) Apply(_ context.Context, deps Deps, p *posting.Postings) (*posting.Postings, Step, error) {
	initial := p.Len()
	var targets []string
	for _, item := range p.Items {
		if item.Source == posting.SourceAggregator {
			targets = append(targets, string(item.Identity()))
		}
	}

	excluded := p.Exclude(posting.FieldIdentity, targets)
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding aggregator postings",
			zap.Strings("excluded_postings", excluded),
			zap.Int("postings_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}

func (f *aggregatorFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}

type felonFriendlyFilter struct {
	disabled bool
	reason   string
}

// NewFelonFriendly creates a filter that drops postings which clearly demand
// a clean record when the profile requires felony-friendly employers.
// Postings with no clear signal are kept; the scorer raises a follow-up
// question for them instead.
func NewFelonFriendly() Filter {
	return &felonFriendlyFilter{}
}

func (f *felonFriendlyFilter) Name() string { return "felon_friendly" }

func (f *felonFriendlyFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *felonFriendlyFilter) IsEnabled() bool { return !f.disabled }

func (f *felonFriendlyFilter) Validate(deps Deps) error {
	if deps.Profile == nil {
		return fmt.Errorf("profile is required")
	}
	return nil
}

func (f *felonFriendlyFilter) Apply(_ context.Context, deps Deps, p *posting.Postings) (*posting.Postings, Step, error) {
	initial := p.Len()
	if !deps.Profile.FelonFriendlyOnly {
		return p, Step{Initial: initial, Dropped: 0, Left: p.Len()}, nil
	}

	var targets []string
	for _, item := range p.Items {
		friendly := item.FelonFriendly
		if friendly == nil {
			friendly = match.InferFelonFriendly(item.Description)
		}
		if friendly != nil && !*friendly {
			targets = append(targets, string(item.Identity()))
		}
	}

	excluded := p.Exclude(posting.FieldIdentity, targets)
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding postings that require a clean record",
			zap.Strings("excluded_postings", excluded),
			zap.Int("postings_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}

func (f *felonFriendlyFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}

// DisableByName marks a filter with the provided name as disabled while
// keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if strings.EqualFold(step.Name(), name) {
			step.Disable(reason)
		}
	}
}
