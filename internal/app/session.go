package app

import (
	"sort"
	"sync"
	"time"

	"timed-quiz-service/internal/domain"
)

// Session is one in-progress quiz run. All mutation goes through the methods
// below, each of which holds the session's own lock; an answer event and a
// timer expiry for the same question therefore serialize, and whichever
// acquires the lock first wins the question.
type Session struct {
	id          string
	mode        domain.Mode
	ownerID     int64
	destination string
	quiz        domain.Quiz
	createdAt   time.Time
	now         func() time.Time

	mu         sync.Mutex
	current    int
	finished   bool
	questionAt time.Time // when the current question became pending

	// solo aggregation: one slot per question, filled in order.
	answers   []domain.AnswerRecord
	soloScore int

	// group aggregation: per-question per-user selections plus running scores.
	groupAnswers map[int]map[int64]int
	scores       map[int64]int
}

func newSession(id string, mode domain.Mode, ownerID int64, destination string, quiz domain.Quiz, now func() time.Time) *Session {
	s := &Session{
		id:          id,
		mode:        mode,
		ownerID:     ownerID,
		destination: destination,
		quiz:        quiz,
		createdAt:   now(),
		now:         now,
	}
	s.questionAt = s.createdAt
	if mode == domain.ModeSolo {
		s.answers = make([]domain.AnswerRecord, 0, len(quiz.Questions))
	} else {
		s.groupAnswers = make(map[int]map[int64]int)
		s.scores = make(map[int64]int)
	}
	return s
}

// recordAnswer applies one answer submission. Validation order follows the
// acceptance rules: live session, matching index, identity, option bounds.
func (s *Session) recordAnswer(questionIndex int, userID int64, selected int) (domain.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return domain.Outcome{}, domain.ErrSessionNotFound
	}
	if questionIndex != s.current {
		return domain.Outcome{}, domain.ErrStaleAnswer
	}

	switch s.mode {
	case domain.ModeSolo:
		if userID != s.ownerID {
			return domain.Outcome{}, domain.ErrDuplicateAnswer
		}
		if len(s.answers) > questionIndex {
			return domain.Outcome{}, domain.ErrAlreadyAnswered
		}
	default:
		if _, ok := s.groupAnswers[questionIndex][userID]; ok {
			return domain.Outcome{}, domain.ErrAlreadyAnswered
		}
	}

	question := s.quiz.Questions[questionIndex]
	if selected < 0 || selected >= len(question.Options) {
		return domain.Outcome{}, domain.ErrInvalidOption
	}

	correct := selected == question.CorrectIndex
	outcome := domain.Outcome{
		SessionID:     s.id,
		UserID:        userID,
		QuestionIndex: questionIndex,
		Selected:      selected,
		CorrectIndex:  question.CorrectIndex,
		Correct:       correct,
	}

	switch s.mode {
	case domain.ModeSolo:
		if correct {
			s.soloScore++
		}
		s.answers = append(s.answers, domain.AnswerRecord{
			Selected:         selected,
			CorrectIndex:     question.CorrectIndex,
			Correct:          correct,
			TimeTakenSeconds: int64(s.now().Sub(s.questionAt).Seconds()),
		})
		outcome.Score = s.soloScore
	default:
		qmap, ok := s.groupAnswers[questionIndex]
		if !ok {
			qmap = make(map[int64]int)
			s.groupAnswers[questionIndex] = qmap
		}
		qmap[userID] = selected
		if correct {
			s.scores[userID]++
		} else if _, ok := s.scores[userID]; !ok {
			s.scores[userID] = 0
		}
		outcome.Score = s.scores[userID]
	}
	return outcome, nil
}

// recordTimeout resolves the current question as expired. It reports false
// when it lost the race: the session finished, the index went stale, or the
// question was already resolved by an answer.
func (s *Session) recordTimeout(questionIndex int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished || questionIndex != s.current {
		return false
	}

	switch s.mode {
	case domain.ModeSolo:
		if len(s.answers) > questionIndex {
			return false
		}
		s.answers = append(s.answers, domain.AnswerRecord{
			Selected:     domain.TimedOut,
			CorrectIndex: s.quiz.Questions[questionIndex].CorrectIndex,
		})
	default:
		// Mark every known participant who skipped this question as absent.
		qmap, ok := s.groupAnswers[questionIndex]
		if !ok {
			qmap = make(map[int64]int)
			s.groupAnswers[questionIndex] = qmap
		}
		for userID := range s.scores {
			if _, answered := qmap[userID]; !answered {
				qmap[userID] = domain.TimedOut
			}
		}
	}
	return true
}

// advance moves to the next question; it is the only mutator of the index.
// Reaching the question count transitions the session to Finished.
func (s *Session) advance() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return s.current, true
	}
	s.current++
	s.questionAt = s.now()
	if s.current >= len(s.quiz.Questions) {
		s.finished = true
	}
	return s.current, s.finished
}

// summary computes the terminal score report. Safe to call on a live session
// too; the runner only does so after the terminal advance.
func (s *Session) summary() domain.FinalSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := len(s.quiz.Questions)
	out := domain.FinalSummary{
		SessionID:      s.id,
		QuizID:         s.quiz.ID,
		Mode:           s.mode,
		TotalQuestions: total,
	}

	switch s.mode {
	case domain.ModeSolo:
		out.Score = s.soloScore
		if total > 0 {
			out.AccuracyPercent = float64(s.soloScore) / float64(total) * 100
		}
		out.TimeTakenSeconds = int64(s.now().Sub(s.createdAt).Seconds())
		out.Ranking = []domain.UserScore{{UserID: s.ownerID, Score: s.soloScore}}
	default:
		ranking := make([]domain.UserScore, 0, len(s.scores))
		for userID, score := range s.scores {
			ranking = append(ranking, domain.UserScore{UserID: userID, Score: score})
		}
		sort.Slice(ranking, func(i, j int) bool {
			if ranking[i].Score != ranking[j].Score {
				return ranking[i].Score > ranking[j].Score
			}
			return ranking[i].UserID < ranking[j].UserID
		})
		out.Ranking = ranking
	}
	return out
}

// view returns a read-only projection for rendering.
func (s *Session) view() domain.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := domain.SessionView{
		ID:              s.id,
		Mode:            s.mode,
		QuizID:          s.quiz.ID,
		QuizTitle:       s.quiz.Title,
		OwnerID:         s.ownerID,
		Destination:     s.destination,
		CurrentIndex:    s.current,
		TotalQuestions:  len(s.quiz.Questions),
		TimePerQuestion: s.quiz.TimePerQuestion,
	}
	if !s.finished && s.current < len(s.quiz.Questions) {
		q := s.quiz.Questions[s.current]
		options := make([]string, len(q.Options))
		copy(options, q.Options)
		v.Question = &domain.QuestionView{Index: s.current, Text: q.Text, Options: options}
	}
	return v
}

// ID returns the session's opaque identifier.
func (s *Session) ID() string {
	return s.id
}
