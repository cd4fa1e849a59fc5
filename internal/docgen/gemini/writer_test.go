package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"applyflow/internal/match"
	"applyflow/internal/posting"
)

type stubGenerator struct {
	response string
	err      error
	prompt   string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func testPosting() *posting.Posting {
	return &posting.Posting{
		Title:       "Go Developer",
		Company:     "Acme",
		Location:    "Remote",
		Description: "Build services in Go.",
	}
}

func TestPolishInterpolatesPrompt(t *testing.T) {
	gen := &stubGenerator{response: "Dear Hiring Manager,\nPolished.\nSincerely,\nSam"}
	w := NewWriter(gen, zap.NewNop(), 0)

	res := &match.Result{MatchedSkills: []string{"Go", "Kubernetes"}}
	out, err := w.Polish(context.Background(), "draft letter", testPosting(), res)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"Go Developer", "Acme", "Go, Kubernetes", "draft letter"} {
		if !strings.Contains(gen.prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, gen.prompt)
		}
	}
	if !strings.Contains(out, "Polished.") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestPolishStripsCodeFences(t *testing.T) {
	gen := &stubGenerator{response: "```markdown\nDear Hiring Manager,\n```"}
	w := NewWriter(gen, zap.NewNop(), 0)

	out, err := w.Polish(context.Background(), "draft", testPosting(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "```") {
		t.Fatalf("expected fences stripped, got %q", out)
	}
}

func TestPolishEmptyDraftPassesThrough(t *testing.T) {
	gen := &stubGenerator{}
	w := NewWriter(gen, zap.NewNop(), 0)

	out, err := w.Polish(context.Background(), "   ", testPosting(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "   " {
		t.Fatalf("expected draft returned unchanged, got %q", out)
	}
	if gen.prompt != "" {
		t.Fatalf("expected no generation call for empty draft")
	}
}

func TestPolishLogsPostingIdentity(t *testing.T) {
	gen := &stubGenerator{response: "Polished."}
	core, logs := observer.New(zapcore.DebugLevel)
	w := NewWriter(gen, zap.New(core), 0)

	if _, err := w.Polish(context.Background(), "draft", testPosting(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := logs.FilterMessage("gemini polish request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one request log, got %d", len(entries))
	}
	got := entries[0].ContextMap()["posting"]
	if got != string(testPosting().Identity()) {
		t.Fatalf("unexpected posting field %v", got)
	}
}

func TestPolishPropagatesGeneratorError(t *testing.T) {
	gen := &stubGenerator{err: errors.New("quota exceeded")}
	w := NewWriter(gen, zap.NewNop(), 0)

	if _, err := w.Polish(context.Background(), "draft", testPosting(), nil); err == nil {
		t.Fatalf("expected error")
	}
}
