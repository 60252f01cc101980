package quiz

import (
	"errors"
	"time"

	"github.com/dukerupert/reloop/internal/model"
)

const PointsPerCorrect = 10

var (
	ErrNotReady        = errors.New("quiz is not ready")
	ErrCompleted       = errors.New("quiz already completed")
	ErrAlreadyAnswered = errors.New("question already answered")
	ErrUnanswered      = errors.New("question not answered")
	ErrInvalidOption   = errors.New("option is not one of the choices")
	ErrOutOfRange      = errors.New("no question in that direction")
)

// Session drives one quiz attempt through loading, error or ready, and
// completed. In ready, each question moves from unanswered to answered
// exactly once, so the score counts a question at most once however often
// it is revisited.
type Session struct {
	a *model.QuizAttempt
}

func NewSession(id string, userID int64, topic string) *Session {
	return &Session{a: &model.QuizAttempt{
		ID:        id,
		UserID:    userID,
		Topic:     topic,
		Questions: []model.QuizQuestion{},
		Answers:   []model.QuizAnswer{},
		State:     model.QuizLoading,
		CreatedAt: time.Now().UTC(),
	}}
}

// Resume wraps a stored attempt.
func Resume(a *model.QuizAttempt) *Session {
	return &Session{a: a}
}

func (s *Session) Attempt() *model.QuizAttempt {
	return s.a
}

// Load moves a loading session to ready with r's questions, or to error
// when r has none.
func (s *Session) Load(r Result) error {
	if s.a.State != model.QuizLoading {
		return ErrNotReady
	}
	s.a.Degraded = r.Degraded
	s.a.Notice = r.Notice
	if len(r.Questions) == 0 {
		s.a.State = model.QuizError
		return ErrNoQuestions
	}
	s.a.Questions = r.Questions
	s.a.Answers = make([]model.QuizAnswer, len(r.Questions))
	s.a.CurrentIndex = 0
	s.a.Score = 0
	s.a.State = model.QuizReady
	return nil
}

func (s *Session) ready() error {
	switch s.a.State {
	case model.QuizReady:
		return nil
	case model.QuizCompleted:
		return ErrCompleted
	default:
		return ErrNotReady
	}
}

// Answer records option for the current question and reports whether it
// was correct.
func (s *Session) Answer(option string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	i := s.a.CurrentIndex
	if s.a.Answers[i].Selected != "" {
		return false, ErrAlreadyAnswered
	}

	q := s.a.Questions[i]
	valid := false
	for _, o := range q.Options {
		if o == option {
			valid = true
			break
		}
	}
	if !valid {
		return false, ErrInvalidOption
	}

	correct := option == q.CorrectAnswer
	s.a.Answers[i] = model.QuizAnswer{Selected: option, Correct: correct}
	if correct {
		s.a.Score++
	}
	return correct, nil
}

// Next moves to the following question once the current one is answered.
func (s *Session) Next() error {
	if err := s.ready(); err != nil {
		return err
	}
	if s.a.Answers[s.a.CurrentIndex].Selected == "" {
		return ErrUnanswered
	}
	if s.a.CurrentIndex >= len(s.a.Questions)-1 {
		return ErrOutOfRange
	}
	s.a.CurrentIndex++
	return nil
}

func (s *Session) Previous() error {
	if err := s.ready(); err != nil {
		return err
	}
	if s.a.CurrentIndex == 0 {
		return ErrOutOfRange
	}
	s.a.CurrentIndex--
	return nil
}

// Complete finishes a session whose questions are all answered.
func (s *Session) Complete() error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, ans := range s.a.Answers {
		if ans.Selected == "" {
			return ErrUnanswered
		}
	}
	now := time.Now().UTC()
	s.a.State = model.QuizCompleted
	s.a.CompletedAt = &now
	return nil
}

// Points is the award for the session's score.
func (s *Session) Points() int {
	return s.a.Score * PointsPerCorrect
}
