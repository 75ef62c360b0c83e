package app

import (
	"time"

	"github.com/google/uuid"

	"timed-quiz-service/internal/domain"
)

// SessionRepository abstracts how live sessions are stored (in-memory,
// optionally mirrored to Redis for liveness).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Remove(sessionID string)
}

// SessionService is the session lifecycle engine: it owns creation, answer
// and timeout judgement, index advancement, and finalization. Each session
// serializes its own mutations; unrelated sessions never contend.
type SessionService struct {
	sessions SessionRepository
	timers   *TimerService
	now      func() time.Time
	newID    func() string
}

func NewSessionService(sessions SessionRepository, timers *TimerService) *SessionService {
	return &SessionService{
		sessions: sessions,
		timers:   timers,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// NewSessionServiceWithClock is test-only for deterministic timestamps.
func NewSessionServiceWithClock(sessions SessionRepository, timers *TimerService, now func() time.Time) *SessionService {
	s := NewSessionService(sessions, timers)
	s.now = now
	return s
}

// AdvanceResult reports where a session landed after an advance.
type AdvanceResult struct {
	NextIndex int
	Finished  bool
}

// Create validates the quiz snapshot, deep-copies it so later edits to the
// source quiz cannot affect the run, and registers a fresh Active(0) session.
func (s *SessionService) Create(mode domain.Mode, ownerID int64, destination string, quiz domain.Quiz) (domain.SessionView, error) {
	if err := quiz.Validate(); err != nil {
		return domain.SessionView{}, err
	}

	session := newSession(s.newID(), mode, ownerID, destination, snapshotQuiz(quiz), s.now)
	s.sessions.Put(session)
	return session.view(), nil
}

// RecordAnswer judges one answer submission. An accepted solo answer resolves
// the question and disarms its deadline; group questions stay open until
// their deadline no matter how many users have answered. The benign
// rejections (ErrStaleAnswer, ErrAlreadyAnswered) are race losses, not
// faults.
func (s *SessionService) RecordAnswer(sessionID string, questionIndex int, userID int64, selected int) (domain.Outcome, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Outcome{}, domain.ErrSessionNotFound
	}

	outcome, err := session.recordAnswer(questionIndex, userID, selected)
	if err != nil {
		return domain.Outcome{}, err
	}
	if session.mode == domain.ModeSolo {
		s.timers.Cancel(sessionID, questionIndex)
	}
	return outcome, nil
}

// RecordTimeout is invoked by the timer service only. It reports whether the
// expiry took effect; a timeout that lost the race to an answer (or to the
// session ending) is swallowed.
func (s *SessionService) RecordTimeout(sessionID string, questionIndex int) bool {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return false
	}
	return session.recordTimeout(questionIndex)
}

// Advance moves the session to the next question. When the index reaches the
// question count the session transitions to Finished and stops accepting
// answers; callers then collect the summary via Finish.
func (s *SessionService) Advance(sessionID string) (AdvanceResult, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return AdvanceResult{}, domain.ErrSessionNotFound
	}
	next, finished := session.advance()
	return AdvanceResult{NextIndex: next, Finished: finished}, nil
}

// Finish computes the final summary and evicts the session from the store.
// After eviction the id resolves to ErrSessionNotFound everywhere, so the
// summary must be retained by the caller.
func (s *SessionService) Finish(sessionID string) (domain.FinalSummary, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.FinalSummary{}, domain.ErrSessionNotFound
	}
	summary := session.summary()
	s.sessions.Remove(sessionID)
	return summary, nil
}

// GetSession returns a read-only projection for rendering.
func (s *SessionService) GetSession(sessionID string) (domain.SessionView, bool) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionView{}, false
	}
	return session.view(), true
}

// snapshotQuiz deep-copies the quiz so the session owns its content.
func snapshotQuiz(quiz domain.Quiz) domain.Quiz {
	out := quiz
	out.Questions = make([]domain.Question, len(quiz.Questions))
	for i, q := range quiz.Questions {
		copied := q
		copied.Options = make([]string, len(q.Options))
		copy(copied.Options, q.Options)
		out.Questions[i] = copied
	}
	return out
}
