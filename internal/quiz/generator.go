package quiz

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/dukerupert/reloop/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed fallback.yaml
var fallbackYAML []byte

const (
	defaultQuestionCount = 5
	defaultTopic         = "e-waste recycling and electronics sustainability"

	NoticeUnavailable = "The quiz generator is unavailable right now, so here is our standard quiz."
)

// TextGenerator turns a prompt into free text.
type TextGenerator interface {
	GenerateResponse(ctx context.Context, prompt string) (string, error)
}

type Result struct {
	Questions []model.QuizQuestion
	Degraded  bool
	Notice    string
}

type Generator struct {
	llm      TextGenerator
	fallback []model.QuizQuestion
	count    int
	logger   *slog.Logger
}

// NewGenerator returns a Generator that asks llm for questions. A nil llm
// always serves the fallback set.
func NewGenerator(llm TextGenerator, logger *slog.Logger) (*Generator, error) {
	fallback, err := LoadFallback()
	if err != nil {
		return nil, err
	}
	return &Generator{llm: llm, fallback: fallback, count: defaultQuestionCount, logger: logger}, nil
}

// LoadFallback decodes and validates the embedded fallback question set.
func LoadFallback() ([]model.QuizQuestion, error) {
	var raw []model.QuizQuestion
	if err := yaml.Unmarshal(fallbackYAML, &raw); err != nil {
		return nil, fmt.Errorf("decode fallback questions: %w", err)
	}
	qs := validQuestions(raw)
	if len(qs) != len(raw) {
		return nil, fmt.Errorf("fallback questions: %d of %d invalid", len(raw)-len(qs), len(raw))
	}
	return qs, nil
}

// Prompt builds the instruction sent to the text generator.
func Prompt(topic string, n int) string {
	if topic == "" {
		topic = defaultTopic
	}
	return fmt.Sprintf(`Generate %d multiple-choice quiz questions about %s.
Respond with only a JSON array. Each element must be an object with the fields
"question" (string), "options" (array of 4 strings), "correctAnswer" (string,
exactly equal to one of the options) and "explanation" (one sentence).`, n, topic)
}

// Generate returns generated questions, or the fallback set marked Degraded
// when the generator fails or its output cannot be used.
func (g *Generator) Generate(ctx context.Context, topic string) Result {
	if g.llm == nil {
		return g.degraded(NoticeUnavailable)
	}

	text, err := g.llm.GenerateResponse(ctx, Prompt(topic, g.count))
	if err != nil {
		g.logger.Warn("quiz generation failed, serving fallback", "topic", topic, "error", err)
		return g.degraded(NoticeUnavailable)
	}

	qs, err := ExtractQuestions(text)
	if err != nil {
		g.logger.Warn("quiz response unusable, serving fallback", "topic", topic, "error", err, "response_len", len(text))
		return g.degraded("")
	}
	return Result{Questions: qs}
}

func (g *Generator) degraded(notice string) Result {
	qs := make([]model.QuizQuestion, len(g.fallback))
	copy(qs, g.fallback)
	return Result{Questions: qs, Degraded: true, Notice: notice}
}
