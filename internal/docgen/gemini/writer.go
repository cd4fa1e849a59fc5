package gemini

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"applyflow/internal/match"
	"applyflow/internal/posting"
	"applyflow/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Writer polishes a drafted cover letter against the posting description.
type Writer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

func NewWriter(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Writer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Writer{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Polish rewrites the draft letter so it speaks to the posting, keeping the
// factual content intact. The draft is returned unchanged on empty input.
func (w *Writer) Polish(ctx context.Context, draft string, post *posting.Posting, res *match.Result) (string, error) {
	if post == nil {
		return "", fmt.Errorf("posting is required")
	}
	if strings.TrimSpace(draft) == "" {
		return draft, nil
	}

	prompt := buildPrompt(draft, post, res)

	w.logger.Debug("gemini polish request",
		zap.String("posting", string(post.Identity())),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, w.maxLogLen)),
	)

	polished, err := w.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", err
	}

	w.logger.Debug("gemini polish response",
		zap.String("posting", string(post.Identity())),
		zap.Int("response_length", utf8.RuneCountInString(polished)),
		zap.String("response_preview", utils.TruncateForLog(polished, w.maxLogLen)),
	)

	return stripFences(polished), nil
}

func buildPrompt(draft string, post *posting.Posting, res *match.Result) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Posting:\n{{POSTING}}\n\nDraft:\n{{DRAFT}}\n\nRewritten letter:"
	}

	var skills string
	if res != nil {
		skills = strings.Join(res.MatchedSkills, ", ")
	}

	prompt := strings.ReplaceAll(template, "{{POSTING_TITLE}}", post.Title)
	prompt = strings.ReplaceAll(prompt, "{{POSTING_COMPANY}}", post.Company)
	prompt = strings.ReplaceAll(prompt, "{{POSTING_DESCRIPTION}}", post.Description)
	prompt = strings.ReplaceAll(prompt, "{{MATCHED_SKILLS}}", skills)
	prompt = strings.ReplaceAll(prompt, "{{DRAFT}}", draft)
	return prompt
}

func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```markdown")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	return strings.TrimSpace(raw) + "\n"
}
