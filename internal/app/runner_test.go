package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/infra/memory"
)

// manualScheduler stands in for time.AfterFunc so tests fire deadlines
// deterministically.
type manualScheduler struct {
	mu  sync.Mutex
	fns []func()
}

func (m *manualScheduler) afterFunc(_ time.Duration, fn func()) *time.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fns = append(m.fns, fn)
	return time.NewTimer(time.Hour)
}

// fire runs the nth scheduled deadline callback.
func (m *manualScheduler) fire(t *testing.T, n int) {
	t.Helper()
	m.mu.Lock()
	if n >= len(m.fns) {
		m.mu.Unlock()
		t.Fatalf("no scheduled deadline %d (have %d)", n, len(m.fns))
	}
	fn := m.fns[n]
	m.mu.Unlock()
	fn()
}

type postedQuestion struct {
	destination string
	sessionID   string
	index       int
}

type recordingNotifier struct {
	mu        sync.Mutex
	questions []postedQuestion
	outcomes  []domain.Outcome
	timeouts  []int
	summaries []domain.FinalSummary
}

func (n *recordingNotifier) PostQuestion(_ context.Context, destination, sessionID string, question domain.QuestionView, _ int, _ int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.questions = append(n.questions, postedQuestion{destination: destination, sessionID: sessionID, index: question.Index})
	return nil
}

func (n *recordingNotifier) PostOutcome(_ context.Context, _ string, outcome domain.Outcome) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outcomes = append(n.outcomes, outcome)
	return nil
}

func (n *recordingNotifier) PostTimeout(_ context.Context, _ string, questionIndex int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.timeouts = append(n.timeouts, questionIndex)
	return nil
}

func (n *recordingNotifier) PostFinalSummary(_ context.Context, _ string, summary domain.FinalSummary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summaries = append(n.summaries, summary)
	return nil
}

func (n *recordingNotifier) snapshot() (questions []postedQuestion, timeouts []int, summaries []domain.FinalSummary) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]postedQuestion(nil), n.questions...),
		append([]int(nil), n.timeouts...),
		append([]domain.FinalSummary(nil), n.summaries...)
}

type runnerFixture struct {
	runner    *app.Runner
	timers    *app.TimerService
	scheduler *manualScheduler
	notifier  *recordingNotifier
	sink      *memory.ResultSink
}

func newRunnerFixture(quiz domain.Quiz) *runnerFixture {
	scheduler := &manualScheduler{}
	timers := app.NewTimerServiceWithAfterFunc(scheduler.afterFunc)
	service := app.NewSessionService(memory.NewSessionStore(), timers)
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		quiz.ID: quiz,
	}), time.Minute)
	notifier := &recordingNotifier{}
	sink := memory.NewResultSink()
	return &runnerFixture{
		runner:    app.NewRunner(service, quizzes, timers, notifier, sink),
		timers:    timers,
		scheduler: scheduler,
		notifier:  notifier,
		sink:      sink,
	}
}

func TestRunnerSoloAnswerDriven(t *testing.T) {
	ctx := context.Background()
	f := newRunnerFixture(sampleQuiz(2))

	view, err := f.runner.StartQuiz(ctx, domain.ModeSolo, "quiz-1", owner, dest)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	questions, _, _ := f.notifier.snapshot()
	if len(questions) != 1 || questions[0].index != 0 || questions[0].destination != dest {
		t.Fatalf("expected question 0 posted to %s, got %+v", dest, questions)
	}
	if f.timers.Outstanding() != 1 {
		t.Fatalf("expected 1 armed deadline, got %d", f.timers.Outstanding())
	}

	if _, err := f.runner.HandleAnswer(ctx, view.ID, 0, owner, 0); err != nil {
		t.Fatalf("answer 0: %v", err)
	}
	questions, _, _ = f.notifier.snapshot()
	if len(questions) != 2 || questions[1].index != 1 {
		t.Fatalf("expected question 1 posted after answer, got %+v", questions)
	}
	if f.timers.Outstanding() != 1 {
		t.Fatalf("expected old deadline cancelled and new one armed, got %d", f.timers.Outstanding())
	}

	if _, err := f.runner.HandleAnswer(ctx, view.ID, 1, owner, 0); err != nil {
		t.Fatalf("answer 1: %v", err)
	}

	_, timeouts, summaries := f.notifier.snapshot()
	if len(timeouts) != 0 {
		t.Fatalf("expected no timeout posts, got %v", timeouts)
	}
	if len(summaries) != 1 || summaries[0].Score != 2 {
		t.Fatalf("expected summary with score 2, got %+v", summaries)
	}
	if f.timers.Outstanding() != 0 {
		t.Fatalf("expected all deadlines released, got %d", f.timers.Outstanding())
	}

	results := f.sink.Results()
	if len(results) != 1 || results[0].UserID != owner || results[0].Score != 2 {
		t.Fatalf("expected one persisted result for the owner with score 2, got %+v", results)
	}
	if _, ok := f.runner.Session(view.ID); ok {
		t.Fatalf("expected session gone after finish")
	}
}

func TestRunnerSoloTimeoutDriven(t *testing.T) {
	ctx := context.Background()
	f := newRunnerFixture(sampleQuiz(2))

	view, err := f.runner.StartQuiz(ctx, domain.ModeSolo, "quiz-1", owner, dest)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	f.scheduler.fire(t, 0)
	questions, timeouts, _ := f.notifier.snapshot()
	if len(timeouts) != 1 || timeouts[0] != 0 {
		t.Fatalf("expected timeout post for question 0, got %v", timeouts)
	}
	if len(questions) != 2 || questions[1].index != 1 {
		t.Fatalf("expected question 1 posted after timeout, got %+v", questions)
	}

	f.scheduler.fire(t, 1)
	_, _, summaries := f.notifier.snapshot()
	if len(summaries) != 1 || summaries[0].Score != 0 {
		t.Fatalf("expected summary with score 0, got %+v", summaries)
	}

	results := f.sink.Results()
	if len(results) != 1 || results[0].Score != 0 {
		t.Fatalf("expected persisted zero-score result, got %+v", results)
	}
	if _, ok := f.runner.Session(view.ID); ok {
		t.Fatalf("expected session gone after timeout-driven finish")
	}
}

func TestRunnerTimeoutAfterAnswerDoesNotDoubleAdvance(t *testing.T) {
	ctx := context.Background()
	f := newRunnerFixture(sampleQuiz(2))

	view, _ := f.runner.StartQuiz(ctx, domain.ModeSolo, "quiz-1", owner, dest)
	if _, err := f.runner.HandleAnswer(ctx, view.ID, 0, owner, 0); err != nil {
		t.Fatalf("answer: %v", err)
	}

	// The stale deadline for question 0 fires anyway (cancellation raced).
	f.scheduler.fire(t, 0)

	questions, timeouts, _ := f.notifier.snapshot()
	if len(timeouts) != 0 {
		t.Fatalf("stale timeout must be swallowed, got %v", timeouts)
	}
	if len(questions) != 2 {
		t.Fatalf("expected exactly one advance past question 0, got %+v", questions)
	}
}

func TestRunnerGroupFlow(t *testing.T) {
	ctx := context.Background()
	f := newRunnerFixture(sampleQuiz(2))

	view, err := f.runner.StartQuiz(ctx, domain.ModeGroup, "quiz-1", owner, dest)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := f.runner.HandleAnswer(ctx, view.ID, 0, userA, 0); err != nil {
		t.Fatalf("userA answer: %v", err)
	}
	if _, err := f.runner.HandleAnswer(ctx, view.ID, 0, userB, 2); err != nil {
		t.Fatalf("userB answer: %v", err)
	}

	// Both known participants answered, but the question stays open.
	questions, _, _ := f.notifier.snapshot()
	if len(questions) != 1 {
		t.Fatalf("group question must not auto-close early, got %+v", questions)
	}

	f.scheduler.fire(t, 0)
	questions, _, _ = f.notifier.snapshot()
	if len(questions) != 2 || questions[1].index != 1 {
		t.Fatalf("expected question 1 after deadline, got %+v", questions)
	}

	if _, err := f.runner.HandleAnswer(ctx, view.ID, 1, userA, 0); err != nil {
		t.Fatalf("userA answer q1: %v", err)
	}
	f.scheduler.fire(t, 1)

	_, _, summaries := f.notifier.snapshot()
	if len(summaries) != 1 {
		t.Fatalf("expected one summary, got %+v", summaries)
	}
	ranking := summaries[0].Ranking
	if len(ranking) != 2 || ranking[0].UserID != userA || ranking[0].Score != 2 || ranking[1].UserID != userB || ranking[1].Score != 0 {
		t.Fatalf("unexpected ranking: %+v", ranking)
	}

	results := f.sink.Results()
	if len(results) != 2 {
		t.Fatalf("expected one persisted result per participant, got %+v", results)
	}
}

func TestRunnerUnknownQuiz(t *testing.T) {
	f := newRunnerFixture(sampleQuiz(1))
	if _, err := f.runner.StartQuiz(context.Background(), domain.ModeSolo, "missing", owner, dest); err == nil {
		t.Fatalf("expected error for unknown quiz")
	}
}
