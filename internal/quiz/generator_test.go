package quiz

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type stubLLM struct {
	text   string
	err    error
	prompt string
}

func (s *stubLLM) GenerateResponse(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.text, s.err
}

func TestLoadFallback(t *testing.T) {
	qs, err := LoadFallback()
	if err != nil {
		t.Fatalf("load fallback: %v", err)
	}
	if len(qs) < 3 {
		t.Errorf("fallback has %d questions, want at least 3", len(qs))
	}
}

func TestGenerateUsesModelOutput(t *testing.T) {
	llm := &stubLLM{text: `[{"question":"Q?","options":["A","B"],"correctAnswer":"A"}]`}
	g, err := NewGenerator(llm, slog.Default())
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}

	r := g.Generate(context.Background(), "batteries")
	if r.Degraded {
		t.Error("expected non-degraded result")
	}
	if len(r.Questions) != 1 {
		t.Errorf("questions = %d, want 1", len(r.Questions))
	}
	if !strings.Contains(llm.prompt, "batteries") {
		t.Errorf("prompt does not mention topic: %q", llm.prompt)
	}
}

func TestGenerateFallsBackOnParseFailure(t *testing.T) {
	g, _ := NewGenerator(&stubLLM{text: "no json here"}, slog.Default())
	fallback, _ := LoadFallback()

	r := g.Generate(context.Background(), "")
	if !r.Degraded {
		t.Error("expected degraded result")
	}
	if r.Notice != "" {
		t.Errorf("notice = %q, want empty on parse failure", r.Notice)
	}
	if len(r.Questions) != len(fallback) {
		t.Errorf("questions = %d, want %d", len(r.Questions), len(fallback))
	}
}

func TestGenerateFallsBackOnNetworkFailure(t *testing.T) {
	g, _ := NewGenerator(&stubLLM{err: errors.New("connection refused")}, slog.Default())

	r := g.Generate(context.Background(), "")
	if !r.Degraded || r.Notice != NoticeUnavailable {
		t.Errorf("result = degraded %v notice %q", r.Degraded, r.Notice)
	}
}

func TestGenerateWithoutModel(t *testing.T) {
	g, _ := NewGenerator(nil, slog.Default())

	r := g.Generate(context.Background(), "")
	if !r.Degraded || len(r.Questions) == 0 {
		t.Errorf("result = %+v, want degraded fallback", r)
	}
}
