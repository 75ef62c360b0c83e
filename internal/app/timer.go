package app

import (
	"sync"
	"time"

	"timed-quiz-service/internal/domain"
)

type timerKey struct {
	session  string
	question int
}

// TimerService schedules at most one delayed action per (session, question)
// pair. Cancellation and firing never both take effect for a pair: the fire
// path removes its own registration before invoking the callback, and
// exactly-once resolution is ultimately enforced by the session lock, not by
// cancellation alone.
type TimerService struct {
	mu        sync.Mutex
	timers    map[timerKey]*time.Timer
	afterFunc func(time.Duration, func()) *time.Timer
}

func NewTimerService() *TimerService {
	return &TimerService{
		timers:    make(map[timerKey]*time.Timer),
		afterFunc: time.AfterFunc,
	}
}

// NewTimerServiceWithAfterFunc is test-only: it lets tests substitute the
// scheduling primitive so deadlines fire deterministically.
func NewTimerServiceWithAfterFunc(afterFunc func(time.Duration, func()) *time.Timer) *TimerService {
	return &TimerService{
		timers:    make(map[timerKey]*time.Timer),
		afterFunc: afterFunc,
	}
}

// Arm schedules onFire to run once after d. Arming while a timer is still
// outstanding for the same pair is a sequencing bug and fails with
// ErrDuplicateTimer.
func (t *TimerService) Arm(sessionID string, questionIndex int, d time.Duration, onFire func()) error {
	key := timerKey{session: sessionID, question: questionIndex}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.timers[key]; ok {
		return domain.ErrDuplicateTimer
	}

	var tm *time.Timer
	tm = t.afterFunc(d, func() {
		t.mu.Lock()
		if current, ok := t.timers[key]; ok && current == tm {
			delete(t.timers, key)
		}
		t.mu.Unlock()
		onFire()
	})
	t.timers[key] = tm
	return nil
}

// Cancel disarms the timer for the pair. A no-op if it already fired or was
// already cancelled.
func (t *TimerService) Cancel(sessionID string, questionIndex int) {
	key := timerKey{session: sessionID, question: questionIndex}

	t.mu.Lock()
	defer t.mu.Unlock()
	if tm, ok := t.timers[key]; ok {
		tm.Stop()
		delete(t.timers, key)
	}
}

// Outstanding reports how many timers are currently armed across all sessions.
func (t *TimerService) Outstanding() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.timers)
}
