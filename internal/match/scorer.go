// Package match evaluates how well a posting fits the saved profile. The
// scoring is deliberately heuristic so it runs without network access: skill
// overlap, salary fit and location fit combine into a 0-100 score, and the
// gaps surface as follow-up questions for the user.
package match

import (
	"fmt"
	"math"
	"strings"

	"applyflow/internal/posting"
	"applyflow/internal/profile"
)

const (
	maxSkillPoints    = 60.0
	maxSalaryPoints   = 25.0
	maxLocationPoints = 15.0

	// QuestionBlacklisted marks a short-circuited result for a blacklisted
	// employer. Callers must treat it as "do not enqueue", not "low fit".
	QuestionBlacklisted = "blacklisted"
)

// Result is the outcome of scoring a posting against the profile. It is
// never persisted standalone, only as an attribute of a queue entry.
type Result struct {
	Score          int      `yaml:"score" json:"score"`
	Questions      []string `yaml:"questions,omitempty" json:"questions,omitempty"`
	NewSkills      []string `yaml:"new_skills,omitempty" json:"new_skills,omitempty"`
	MatchedSkills  []string `yaml:"matched_skills,omitempty" json:"matched_skills,omitempty"`
	MissingSkills  []string `yaml:"missing_skills,omitempty" json:"missing_skills,omitempty"`
	RequiredSkills []string `yaml:"required_skills,omitempty" json:"required_skills,omitempty"`
	FelonFriendly  *bool    `yaml:"felon_friendly,omitempty" json:"felon_friendly,omitempty"`
}

// Blacklisted reports whether the result is the blacklist short-circuit.
func (r *Result) Blacklisted() bool {
	return r.Score == 0 && len(r.Questions) == 1 && r.Questions[0] == QuestionBlacklisted
}

// KnownSkillFunc reports whether a skill is already tracked by the ledger.
type KnownSkillFunc func(name string) bool

// Score compares the profile with the posting. Pure and deterministic: no
// side effects, no network or file access.
func Score(p *profile.Profile, post *posting.Posting, ledgerKnown KnownSkillFunc) *Result {
	if p.Blacklisted(post.Company) {
		return &Result{Score: 0, Questions: []string{QuestionBlacklisted}}
	}

	result := &Result{}
	normalized := normalizeText(post.Title + "\n" + post.Description)

	// Skill overlap: up to 60 points, scaled by the share of profile skills
	// the posting mentions.
	matchedCount := 0
	for _, skill := range p.SkillNames() {
		if containsSkill(normalized, skill) {
			matchedCount++
			result.MatchedSkills = append(result.MatchedSkills, skill)
		}
	}
	skillPoints := maxSkillPoints * float64(matchedCount) / math.Max(1, float64(len(p.Skills)))

	result.RequiredSkills = ExtractRequiredSkills(post.Description)
	for _, skill := range result.RequiredSkills {
		if p.HasSkill(skill) {
			continue
		}
		result.MissingSkills = append(result.MissingSkills, skill)
		result.Questions = append(result.Questions, fmt.Sprintf("Do you have experience with %s?", skill))
		if ledgerKnown == nil || !ledgerKnown(skill) {
			result.NewSkills = append(result.NewSkills, skill)
		}
	}

	// Salary fit: up to 25 points, neutral half credit for unparseable text.
	salaryPoints := salaryCredit(post.SalaryText, p.SalaryFloor)
	if _, _, ok := ParseSalaryRange(post.SalaryText); !ok && p.SalaryFloor > 0 {
		result.Questions = append(result.Questions, "Posting does not advertise compensation; confirm it meets your minimum.")
	}

	// Location fit: up to 15 points.
	locationPoints := 0.0
	if p.AcceptsLocation(post.Location) {
		locationPoints = maxLocationPoints
	} else if strings.TrimSpace(post.Location) == "" {
		result.Questions = append(result.Questions, "Posting omitted location details; confirm they align with your preferences.")
	} else {
		result.Questions = append(result.Questions, "Posting location does not match saved preferences.")
	}

	result.FelonFriendly = post.FelonFriendly
	if result.FelonFriendly == nil {
		result.FelonFriendly = InferFelonFriendly(post.Description)
	}
	if p.FelonFriendlyOnly && (result.FelonFriendly == nil || !*result.FelonFriendly) {
		result.Questions = append(result.Questions, "Listing may not clearly state it is felon friendly; research the employer before applying.")
	}

	total := skillPoints + salaryPoints + locationPoints
	result.Score = int(math.Round(math.Min(total, 100)))
	return result
}

var (
	felonPositiveMarkers = []string{"felon friendly", "felony friendly", "second chance", "justice-involved"}
	felonNegativeMarkers = []string{"must pass background", "no felonies", "no felony", "clean record required"}
)

// InferFelonFriendly scans the description for signals about background
// check policy. Returns nil when the text is silent or contradictory.
func InferFelonFriendly(description string) *bool {
	text := strings.ToLower(description)
	positive := false
	for _, marker := range felonPositiveMarkers {
		if strings.Contains(text, marker) {
			positive = true
			break
		}
	}
	negative := false
	for _, marker := range felonNegativeMarkers {
		if strings.Contains(text, marker) {
			negative = true
			break
		}
	}
	switch {
	case positive && !negative:
		v := true
		return &v
	case negative && !positive:
		v := false
		return &v
	default:
		return nil
	}
}
