package model

import "time"

type QuizQuestion struct {
	Question      string   `json:"question" yaml:"question"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer string   `json:"correctAnswer" yaml:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty" yaml:"explanation"`
}

// QuizAnswer is the recorded response to one question. Selected is empty
// while the question is unanswered.
type QuizAnswer struct {
	Selected string `json:"selected,omitempty"`
	Correct  bool   `json:"correct"`
}

type QuizState string

const (
	QuizLoading   QuizState = "loading"
	QuizError     QuizState = "error"
	QuizReady     QuizState = "ready"
	QuizCompleted QuizState = "completed"
)

type QuizAttempt struct {
	ID            string         `json:"id"`
	UserID        int64          `json:"user_id"`
	Topic         string         `json:"topic"`
	Questions     []QuizQuestion `json:"questions"`
	Answers       []QuizAnswer   `json:"answers"`
	CurrentIndex  int            `json:"current_index"`
	Score         int            `json:"score"`
	State         QuizState      `json:"state"`
	Degraded      bool           `json:"degraded"`
	Notice        string         `json:"notice,omitempty"`
	PointsAwarded bool           `json:"points_awarded"`
	CreatedAt     time.Time      `json:"created_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
}
