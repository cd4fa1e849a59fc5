// Package docgen renders tailored resume and cover letter drafts for a
// posting. Drafts are plain text and are written next to the state files so
// a submission step can attach them.
package docgen

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"applyflow/internal/match"
	"applyflow/internal/posting"
	"applyflow/internal/profile"
)

// Drafts holds the paths of generated documents for one posting.
type Drafts struct {
	ResumePath      string
	CoverLetterPath string
}

type Generator struct {
	dir string
	now func() time.Time
}

func New(dir string) *Generator {
	return &Generator{dir: dir, now: time.Now}
}

// WriteDrafts renders both documents and writes them under the generator
// directory, keyed by the posting slug.
func (g *Generator) WriteDrafts(p *profile.Profile, post *posting.Posting, res *match.Result) (*Drafts, error) {
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create drafts dir: %w", err)
	}
	if res == nil {
		res = &match.Result{}
	}

	slug := post.Slug()
	resumePath := filepath.Join(g.dir, slug+"-resume.md")
	letterPath := filepath.Join(g.dir, slug+"-cover-letter.md")

	if err := os.WriteFile(resumePath, []byte(g.Resume(p, post, res)), 0o644); err != nil {
		return nil, fmt.Errorf("write resume draft: %w", err)
	}
	if err := os.WriteFile(letterPath, []byte(g.CoverLetter(p, post, res)), 0o644); err != nil {
		return nil, fmt.Errorf("write cover letter draft: %w", err)
	}

	return &Drafts{ResumePath: resumePath, CoverLetterPath: letterPath}, nil
}

// Resume builds a draft that leads with the skills the posting asked for.
func (g *Generator) Resume(p *profile.Profile, post *posting.Posting, res *match.Result) string {
	var lines []string
	lines = append(lines, contactBlock(p)...)
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("Target Role: %s at %s", post.Title, post.Company), "")

	if len(res.MatchedSkills) > 0 {
		lines = append(lines, "Key Qualifications")
		for _, skill := range res.MatchedSkills {
			lines = append(lines, fmt.Sprintf("  - Demonstrated expertise in %s", skill))
		}
		lines = append(lines, "")
	}

	matched := make(map[string]bool, len(res.MatchedSkills))
	for _, skill := range res.MatchedSkills {
		matched[strings.ToLower(skill)] = true
	}
	var remaining []string
	for _, skill := range p.SkillNames() {
		if !matched[strings.ToLower(skill)] {
			remaining = append(remaining, skill)
		}
	}
	if len(remaining) > 0 {
		lines = append(lines, "Additional Skills")
		for _, skill := range remaining {
			lines = append(lines, fmt.Sprintf("  - %s", skill))
		}
		lines = append(lines, "")
	}

	if len(res.MissingSkills) > 0 {
		lines = append(lines, "Development Targets")
		for _, skill := range res.MissingSkills {
			lines = append(lines, fmt.Sprintf("  - Gather supporting stories for %s or pursue training", skill))
		}
		lines = append(lines, "")
	}

	return finish(lines)
}

// CoverLetter builds a conversational draft referencing the scored match.
func (g *Generator) CoverLetter(p *profile.Profile, post *posting.Posting, res *match.Result) string {
	today := g.now().Format("January 2, 2006")
	lines := []string{today, "", post.Company, "", "Dear Hiring Manager,", ""}

	lines = append(lines, fmt.Sprintf(
		"I am excited to apply for the %s role with %s. "+
			"My background and focus areas align with the responsibilities highlighted in the description.",
		post.Title, post.Company), "")

	if len(res.MatchedSkills) > 0 {
		lines = append(lines, "In my recent work I have:")
		highlights := res.MatchedSkills
		if len(highlights) > 5 {
			highlights = highlights[:5]
		}
		for _, skill := range highlights {
			lines = append(lines, fmt.Sprintf("  - Delivered results that showcase %s.", skill))
		}
		lines = append(lines, "")
	}

	if len(res.MissingSkills) > 0 {
		lines = append(lines,
			"Where the posting calls for emerging skills, I am proactively filling those gaps through research, mentorship, and hands-on projects.",
			"")
	}

	lines = append(lines,
		"Thank you for your consideration. I welcome the chance to discuss how my experience can support your team.",
		"", "Sincerely,", p.Name)

	return finish(lines)
}

func contactBlock(p *profile.Profile) []string {
	lines := []string{p.Name}
	contact := []string{p.Email}
	if p.Phone != "" {
		contact = append(contact, p.Phone)
	}
	lines = append(lines, strings.Join(contact, " | "))
	if summary := strings.TrimSpace(p.Summary); summary != "" {
		lines = append(lines, summary)
	}
	return lines
}

func finish(lines []string) string {
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n")) + "\n"
}
