package app

import (
	"context"
	"errors"
	"log"
	"time"

	"timed-quiz-service/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// Notifier posts quiz progress to wherever the session's participants live.
// Implementations perform I/O; the runner only calls them after the state
// transition they report has already been applied.
type Notifier interface {
	PostQuestion(ctx context.Context, destination string, sessionID string, question domain.QuestionView, total int, timeLimitSeconds int) error
	PostOutcome(ctx context.Context, destination string, outcome domain.Outcome) error
	PostTimeout(ctx context.Context, destination string, questionIndex int) error
	PostFinalSummary(ctx context.Context, destination string, summary domain.FinalSummary) error
}

// ResultSink persists finished runs.
type ResultSink interface {
	SaveResult(ctx context.Context, result domain.Result) error
}

// Runner drives sessions against the quiz source, the notifier, and the
// result sink. Per question: post it, arm the deadline, and let whichever of
// answer or expiry wins the session lock decide the resolution; the loser's
// path observes a rejection and does not advance, so the
// advance-and-post-next sequence runs at most once per question.
type Runner struct {
	service  *SessionService
	quizzes  QuizRepository
	timers   *TimerService
	notifier Notifier
	sink     ResultSink
	now      func() time.Time
}

func NewRunner(service *SessionService, quizzes QuizRepository, timers *TimerService, notifier Notifier, sink ResultSink) *Runner {
	return &Runner{
		service:  service,
		quizzes:  quizzes,
		timers:   timers,
		notifier: notifier,
		sink:     sink,
		now:      time.Now,
	}
}

// StartQuiz loads the quiz, creates a session, posts question zero, and arms
// its deadline. The returned view describes the freshly created session.
func (r *Runner) StartQuiz(ctx context.Context, mode domain.Mode, quizID string, userID int64, destination string) (domain.SessionView, error) {
	quiz, err := r.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.SessionView{}, err
	}

	view, err := r.service.Create(mode, userID, destination, quiz)
	if err != nil {
		return domain.SessionView{}, err
	}

	if err := r.postCurrent(ctx, view); err != nil {
		return domain.SessionView{}, err
	}
	return view, nil
}

// HandleAnswer feeds an external answer event into the session. Accepted solo
// answers resolve the question and trigger the advance; group questions stay
// open until their deadline regardless of how many users have answered.
func (r *Runner) HandleAnswer(ctx context.Context, sessionID string, questionIndex int, userID int64, selected int) (domain.Outcome, error) {
	outcome, err := r.service.RecordAnswer(sessionID, questionIndex, userID, selected)
	if err != nil {
		return domain.Outcome{}, err
	}

	view, ok := r.service.GetSession(sessionID)
	if !ok {
		return outcome, nil
	}
	if err := r.notifier.PostOutcome(ctx, view.Destination, outcome); err != nil {
		log.Printf("runner: post outcome failed for session %s: %v", sessionID, err)
	}

	if view.Mode == domain.ModeSolo {
		r.advance(ctx, sessionID)
	}
	return outcome, nil
}

// Session exposes the read-only projection for transport layers.
func (r *Runner) Session(sessionID string) (domain.SessionView, bool) {
	return r.service.GetSession(sessionID)
}

// postCurrent posts the pending question and arms its deadline.
func (r *Runner) postCurrent(ctx context.Context, view domain.SessionView) error {
	if view.Question == nil {
		return nil
	}
	question := *view.Question

	if err := r.notifier.PostQuestion(ctx, view.Destination, view.ID, question, view.TotalQuestions, view.TimePerQuestion); err != nil {
		log.Printf("runner: post question %d failed for session %s: %v", question.Index, view.ID, err)
	}

	duration := time.Duration(view.TimePerQuestion) * time.Second
	err := r.timers.Arm(view.ID, question.Index, duration, func() {
		r.handleTimeout(context.Background(), view.ID, question.Index)
	})
	if errors.Is(err, domain.ErrDuplicateTimer) {
		// Sequencing bug; surface it loudly rather than run two deadlines.
		log.Printf("runner: BUG: duplicate timer for session %s question %d", view.ID, question.Index)
	}
	return err
}

// handleTimeout is the deadline callback. The state transition completes
// before any notification goes out, so a failed notify only loses a message.
func (r *Runner) handleTimeout(ctx context.Context, sessionID string, questionIndex int) {
	if !r.service.RecordTimeout(sessionID, questionIndex) {
		return // lost the race to an answer, or the session is gone
	}

	if view, ok := r.service.GetSession(sessionID); ok {
		if err := r.notifier.PostTimeout(ctx, view.Destination, questionIndex); err != nil {
			log.Printf("runner: post timeout failed for session %s: %v", sessionID, err)
		}
	}
	r.advance(ctx, sessionID)
}

// advance moves the session forward and either posts the next question or
// finalizes the run.
func (r *Runner) advance(ctx context.Context, sessionID string) {
	result, err := r.service.Advance(sessionID)
	if err != nil {
		log.Printf("runner: advance failed for session %s: %v", sessionID, err)
		return
	}

	if !result.Finished {
		if view, ok := r.service.GetSession(sessionID); ok {
			if err := r.postCurrent(ctx, view); err != nil {
				log.Printf("runner: session %s stalled at question %d: %v", sessionID, result.NextIndex, err)
			}
		}
		return
	}
	r.finalize(ctx, sessionID)
}

// finalize snapshots what the I/O needs, evicts the session, then reports
// and persists. State is settled before the first external call.
func (r *Runner) finalize(ctx context.Context, sessionID string) {
	view, ok := r.service.GetSession(sessionID)
	if !ok {
		return
	}
	summary, err := r.service.Finish(sessionID)
	if err != nil {
		log.Printf("runner: finish failed for session %s: %v", sessionID, err)
		return
	}

	if err := r.notifier.PostFinalSummary(ctx, view.Destination, summary); err != nil {
		log.Printf("runner: post summary failed for session %s: %v", sessionID, err)
	}

	timestamp := r.now().Unix()
	for _, entry := range summary.Ranking {
		result := domain.Result{
			UserID:           entry.UserID,
			QuizID:           summary.QuizID,
			Score:            entry.Score,
			Timestamp:        timestamp,
			TimeTakenSeconds: summary.TimeTakenSeconds,
		}
		if err := r.sink.SaveResult(ctx, result); err != nil {
			log.Printf("runner: save result failed for user %d session %s: %v", entry.UserID, sessionID, err)
		}
	}
}
