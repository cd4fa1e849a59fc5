// Package profile holds the candidate attributes every other component reads:
// salary floor, accepted locations, blacklisted employers and the skills
// inventory. Mutations happen only through explicit user edits in the CLI.
package profile

import (
	"strings"
	"time"
)

// Skill is an inventory item with optional free-form notes.
type Skill struct {
	Name    string   `yaml:"name"`
	Notes   []string `yaml:"notes,omitempty"`
	AddedAt string   `yaml:"added_at,omitempty"`
}

type Profile struct {
	Name              string   `yaml:"name"`
	Email             string   `yaml:"email"`
	Phone             string   `yaml:"phone,omitempty"`
	Summary           string   `yaml:"summary,omitempty"`
	SalaryFloor       int      `yaml:"salary_floor,omitempty"`
	Locations         []string `yaml:"locations,omitempty"`
	FelonFriendlyOnly bool     `yaml:"felon_friendly_only,omitempty"`
	Blacklist         []string `yaml:"blacklist,omitempty"`
	Skills            []Skill  `yaml:"skills,omitempty"`
}

func fold(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

// HasSkill reports whether the skill is already in the inventory
// (case-insensitive).
func (p *Profile) HasSkill(name string) bool {
	key := fold(name)
	for _, s := range p.Skills {
		if fold(s.Name) == key {
			return true
		}
	}
	return false
}

// AddSkill registers a skill unless an equivalent one exists.
func (p *Profile) AddSkill(name string, now time.Time) bool {
	name = strings.TrimSpace(name)
	if name == "" || p.HasSkill(name) {
		return false
	}
	p.Skills = append(p.Skills, Skill{Name: name, AddedAt: now.UTC().Format(time.RFC3339)})
	return true
}

// SkillNames returns the inventory names in insertion order.
func (p *Profile) SkillNames() []string {
	names := make([]string, 0, len(p.Skills))
	for _, s := range p.Skills {
		names = append(names, s.Name)
	}
	return names
}

// Blacklisted reports whether the company is on the employer blacklist.
func (p *Profile) Blacklisted(company string) bool {
	key := fold(company)
	if key == "" {
		return false
	}
	for _, b := range p.Blacklist {
		if fold(b) == key {
			return true
		}
	}
	return false
}

// AcceptsLocation reports whether the posting location satisfies the saved
// location preferences. An empty preference set accepts everything. A
// "remote" marker on both sides always matches.
func (p *Profile) AcceptsLocation(location string) bool {
	if len(p.Locations) == 0 {
		return true
	}
	loc := fold(location)
	for _, pref := range p.Locations {
		prefKey := fold(pref)
		if prefKey == "" {
			continue
		}
		if strings.Contains(loc, prefKey) || (loc != "" && strings.Contains(prefKey, loc)) {
			return true
		}
		if strings.Contains(prefKey, "remote") && strings.Contains(loc, "remote") {
			return true
		}
	}
	return false
}
