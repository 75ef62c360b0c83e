package memory

import (
	"context"
	"sync"

	"timed-quiz-service/internal/domain"
)

// ResultSink keeps finished runs in memory. Used when no Postgres is
// configured, and by tests that assert on persisted results.
type ResultSink struct {
	mu      sync.Mutex
	results []domain.Result
}

func NewResultSink() *ResultSink {
	return &ResultSink{}
}

func (s *ResultSink) SaveResult(_ context.Context, result domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

// Results returns a copy of everything saved so far.
func (s *ResultSink) Results() []domain.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Result, len(s.results))
	copy(out, s.results)
	return out
}
