package quiz

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/dukerupert/reloop/internal/model"
)

const maxQuestions = 10

// ErrNoQuestions is returned when text holds no usable question list.
var ErrNoQuestions = errors.New("no valid questions in response")

// ExtractQuestions finds the first JSON array in free text that decodes to
// quiz questions and returns its valid entries. A question is valid when it
// has text, at least two distinct options, and a correct answer that is one
// of them. Invalid entries are dropped; if none remain ErrNoQuestions is
// returned.
func ExtractQuestions(text string) ([]model.QuizQuestion, error) {
	for start := strings.IndexByte(text, '['); start >= 0; {
		end := matchingBracket(text, start)
		if end < 0 {
			break
		}

		var raw []model.QuizQuestion
		if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err == nil {
			if qs := validQuestions(raw); len(qs) > 0 {
				return qs, nil
			}
		}

		next := strings.IndexByte(text[start+1:], '[')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, ErrNoQuestions
}

// matchingBracket returns the index of the ']' closing the '[' at open,
// skipping brackets inside JSON strings, or -1.
func matchingBracket(text string, open int) int {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func validQuestions(raw []model.QuizQuestion) []model.QuizQuestion {
	out := make([]model.QuizQuestion, 0, len(raw))
	for _, q := range raw {
		if clean, ok := validate(q); ok {
			out = append(out, clean)
			if len(out) == maxQuestions {
				break
			}
		}
	}
	return out
}

func validate(q model.QuizQuestion) (model.QuizQuestion, bool) {
	q.Question = strings.TrimSpace(q.Question)
	q.CorrectAnswer = strings.TrimSpace(q.CorrectAnswer)
	q.Explanation = strings.TrimSpace(q.Explanation)
	if q.Question == "" || q.CorrectAnswer == "" {
		return q, false
	}

	seen := make(map[string]struct{}, len(q.Options))
	opts := make([]string, 0, len(q.Options))
	for _, o := range q.Options {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if _, dup := seen[o]; dup {
			continue
		}
		seen[o] = struct{}{}
		opts = append(opts, o)
	}
	if len(opts) < 2 {
		return q, false
	}
	if _, ok := seen[q.CorrectAnswer]; !ok {
		return q, false
	}
	q.Options = opts
	return q, true
}
