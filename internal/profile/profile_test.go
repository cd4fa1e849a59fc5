package profile

import (
	"testing"
	"time"
)

func TestAddSkillDeduplicates(t *testing.T) {
	p := &Profile{}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	if !p.AddSkill("Go", now) {
		t.Fatalf("expected first add to succeed")
	}
	if p.AddSkill("  go ", now) {
		t.Fatalf("expected case and space insensitive dedup")
	}
	if p.AddSkill("", now) {
		t.Fatalf("expected empty skill rejected")
	}
	if len(p.Skills) != 1 {
		t.Fatalf("expected 1 skill, got %d", len(p.Skills))
	}
}

func TestBlacklisted(t *testing.T) {
	p := &Profile{Blacklist: []string{"Acme Corp", "  Umbrella  "}}

	if !p.Blacklisted("ACME CORP") {
		t.Fatalf("expected case-insensitive blacklist hit")
	}
	if !p.Blacklisted("umbrella") {
		t.Fatalf("expected whitespace-folded blacklist hit")
	}
	if p.Blacklisted("Initech") {
		t.Fatalf("did not expect blacklist hit")
	}
	if p.Blacklisted("") {
		t.Fatalf("empty company must never match")
	}
}

func TestAcceptsLocation(t *testing.T) {
	cases := []struct {
		name     string
		prefs    []string
		location string
		want     bool
	}{
		{"no preferences accept everything", nil, "Boise, ID", true},
		{"exact match", []string{"Portland, OR"}, "Portland, OR", true},
		{"posting narrows preference", []string{"Portland, OR"}, "Portland", true},
		{"preference inside posting", []string{"Portland"}, "Portland, OR metro", true},
		{"remote on both sides", []string{"Remote (US)"}, "Fully remote", true},
		{"mismatch", []string{"Portland, OR"}, "Austin, TX", false},
		{"empty location with preferences", []string{"Portland, OR"}, "", false},
	}

	for _, tc := range cases {
		p := &Profile{Locations: tc.prefs}
		if got := p.AcceptsLocation(tc.location); got != tc.want {
			t.Fatalf("%s: AcceptsLocation(%q) = %v, want %v", tc.name, tc.location, got, tc.want)
		}
	}
}
