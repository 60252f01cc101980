package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukerupert/reloop/internal/model"
	"github.com/dukerupert/reloop/internal/store"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	ActivityType     = "Quiz Completed"
	ActivityCategory = "Quiz"
)

var (
	ErrNotFound    = errors.New("quiz not found")
	ErrRateLimited = errors.New("too many quizzes requested, try again later")
)

// Awarder credits a completed attempt at most once.
type Awarder interface {
	AwardQuiz(ctx context.Context, attemptID string, e model.Earning) (bool, error)
}

type Completion struct {
	Attempt *model.QuizAttempt `json:"attempt"`
	Points  int                `json:"points"`
	// Awarded is true only for the call that credited the points.
	Awarded bool `json:"awarded"`
}

type Service struct {
	store   *store.QuizStore
	gen     *Generator
	awarder Awarder
	logger  *slog.Logger

	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
	locks    map[string]*attemptLock
}

type attemptLock struct {
	mu   sync.Mutex
	refs int
}

// NewService limits each user to perMinute quiz generations with the given
// burst.
func NewService(qs *store.QuizStore, gen *Generator, awarder Awarder, perMinute float64, burst int, logger *slog.Logger) *Service {
	return &Service{
		store:    qs,
		gen:      gen,
		awarder:  awarder,
		logger:   logger,
		limit:    rate.Limit(perMinute / 60),
		burst:    burst,
		limiters: make(map[int64]*rate.Limiter),
		locks:    make(map[string]*attemptLock),
	}
}

func (s *Service) limiter(userID int64) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[userID]
	if !ok {
		l = rate.NewLimiter(s.limit, s.burst)
		s.limiters[userID] = l
	}
	return l
}

// PruneLimiters drops the limiters of users whose bucket has refilled. A
// full bucket behaves exactly like a fresh one, so pruning never grants a
// user extra generations. It returns how many were dropped.
func (s *Service) PruneLimiters() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for userID, l := range s.limiters {
		if l.Tokens() >= float64(s.burst) {
			delete(s.limiters, userID)
			n++
		}
	}
	return n
}

// lock serializes mutations of one attempt.
func (s *Service) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &attemptLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

// Start generates a new quiz for the user and stores it ready to answer.
func (s *Service) Start(ctx context.Context, userID int64, topic string) (*model.QuizAttempt, error) {
	if !s.limiter(userID).Allow() {
		return nil, ErrRateLimited
	}

	sess := NewSession(uuid.NewString(), userID, topic)
	if err := s.store.Create(ctx, sess.Attempt()); err != nil {
		return nil, err
	}

	result := s.gen.Generate(ctx, topic)
	if err := sess.Load(result); err != nil {
		s.logger.Error("quiz load failed", "attempt_id", sess.Attempt().ID, "error", err)
	}
	if err := s.store.Save(ctx, sess.Attempt()); err != nil {
		return nil, err
	}
	return sess.Attempt(), nil
}

func (s *Service) Get(ctx context.Context, userID int64, id string) (*model.QuizAttempt, error) {
	a, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrNotFound
	}
	return a, nil
}

func (s *Service) mutate(ctx context.Context, userID int64, id string, fn func(*Session) error) (*model.QuizAttempt, error) {
	unlock := s.lock(id)
	defer unlock()

	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	sess := Resume(a)
	if err := fn(sess); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, sess.Attempt()); err != nil {
		return nil, err
	}
	return sess.Attempt(), nil
}

// Answer records option for the attempt's current question.
func (s *Service) Answer(ctx context.Context, userID int64, id, option string) (*model.QuizAttempt, bool, error) {
	var correct bool
	a, err := s.mutate(ctx, userID, id, func(sess *Session) error {
		var err error
		correct, err = sess.Answer(option)
		return err
	})
	return a, correct, err
}

func (s *Service) Next(ctx context.Context, userID int64, id string) (*model.QuizAttempt, error) {
	return s.mutate(ctx, userID, id, (*Session).Next)
}

func (s *Service) Previous(ctx context.Context, userID int64, id string) (*model.QuizAttempt, error) {
	return s.mutate(ctx, userID, id, (*Session).Previous)
}

// Complete finishes the attempt and awards score*10 points. Calling it
// again on a completed attempt returns the same result and awards nothing.
func (s *Service) Complete(ctx context.Context, userID int64, id string) (*Completion, error) {
	unlock := s.lock(id)
	defer unlock()

	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	sess := Resume(a)

	if a.State != model.QuizCompleted {
		if err := sess.Complete(); err != nil {
			return nil, err
		}
		if err := s.store.Save(ctx, sess.Attempt()); err != nil {
			return nil, err
		}
	}

	item := a.Topic
	if item == "" {
		item = "E-waste quiz"
	}
	awarded, err := s.awarder.AwardQuiz(ctx, a.ID, model.Earning{
		UserID:   userID,
		Type:     ActivityType,
		Category: ActivityCategory,
		Item:     fmt.Sprintf("%s (%d/%d)", item, a.Score, len(a.Questions)),
		Points:   sess.Points(),
	})
	if err != nil {
		return nil, fmt.Errorf("award quiz points: %w", err)
	}
	a.PointsAwarded = true

	if awarded {
		s.logger.Info("quiz completed", "attempt_id", a.ID, "user_id", userID, "score", a.Score, "points", sess.Points())
	}
	return &Completion{Attempt: a, Points: sess.Points(), Awarded: awarded}, nil
}
