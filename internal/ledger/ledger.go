// Package ledger records skills observed across postings and the outcomes
// of the applications they came from. The log is append-only and feeds
// profile suggestions: skills in high demand the user has not claimed yet.
package ledger

import (
	"sort"
	"strings"
	"time"

	"applyflow/internal/posting"
)

// Entry ties one observed skill to the posting it was seen in.
type Entry struct {
	Skill     string           `yaml:"skill"`
	FirstSeen time.Time        `yaml:"first_seen"`
	Source    posting.Identity `yaml:"source"`
	Outcome   string           `yaml:"outcome,omitempty"`
}

// Ledger is the persisted skill observation log.
type Ledger struct {
	Entries []*Entry `yaml:"entries"`
}

func New() *Ledger {
	return &Ledger{}
}

func fold(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

// Knows reports whether the skill appears anywhere in the ledger.
func (l *Ledger) Knows(skill string) bool {
	key := fold(skill)
	for _, e := range l.Entries {
		if fold(e.Skill) == key {
			return true
		}
	}
	return false
}

// Observe appends an entry for the skill unless the same (skill, source)
// pair was already recorded. Returns true when a new entry was added.
func (l *Ledger) Observe(skill string, source posting.Identity, now time.Time) bool {
	skill = strings.TrimSpace(skill)
	if skill == "" {
		return false
	}
	key := fold(skill)
	for _, e := range l.Entries {
		if fold(e.Skill) == key && e.Source == source {
			return false
		}
	}
	l.Entries = append(l.Entries, &Entry{Skill: skill, FirstSeen: now, Source: source})
	return true
}

// RecordOutcome annotates every entry sourced from the posting with the
// application outcome.
func (l *Ledger) RecordOutcome(source posting.Identity, outcome string) int {
	updated := 0
	for _, e := range l.Entries {
		if e.Source == source {
			e.Outcome = outcome
			updated++
		}
	}
	return updated
}

// SkillStat aggregates demand and success signals for one skill.
type SkillStat struct {
	Skill      string
	Seen       int
	Interviews int
	Offers     int
}

// Opportunity score: high demand with little success so far sorts first.
func (s SkillStat) opportunity() int {
	return s.Seen - s.Interviews - s.Offers
}

// ByOpportunity returns per-skill stats sorted by demand minus success, so
// the most promising profile additions come first.
func (l *Ledger) ByOpportunity() []SkillStat {
	stats := make(map[string]*SkillStat)
	var order []string
	for _, e := range l.Entries {
		key := fold(e.Skill)
		stat, ok := stats[key]
		if !ok {
			stat = &SkillStat{Skill: e.Skill}
			stats[key] = stat
			order = append(order, key)
		}
		stat.Seen++
		switch e.Outcome {
		case "interview":
			stat.Interviews++
		case "offer":
			stat.Offers++
		}
	}

	out := make([]SkillStat, 0, len(order))
	for _, key := range order {
		out = append(out, *stats[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].opportunity() != out[j].opportunity() {
			return out[i].opportunity() > out[j].opportunity()
		}
		if out[i].Seen != out[j].Seen {
			return out[i].Seen > out[j].Seen
		}
		return fold(out[i].Skill) < fold(out[j].Skill)
	})
	return out
}

func (l *Ledger) Len() int {
	return len(l.Entries)
}
