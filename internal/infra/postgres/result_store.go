package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v4/pgxpool"

	"timed-quiz-service/internal/domain"
)

// ResultStore persists finished runs and serves leaderboard queries.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

// SaveResult implements app.ResultSink.
func (s *ResultStore) SaveResult(ctx context.Context, result domain.Result) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO results (user_id, quiz_id, score, ts, time_taken) VALUES ($1, $2, $3, $4, $5)`,
		result.UserID, result.QuizID, result.Score, result.Timestamp, result.TimeTakenSeconds,
	)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

// Leaderboard aggregates the best run per user within [since, until]:
// higher score wins, ties broken by lower time taken. Returns at most limit
// rows ordered best-first.
func (s *ResultStore) Leaderboard(ctx context.Context, since, until int64, quizID string, limit int) ([]domain.LeaderboardEntry, error) {
	query := `SELECT user_id, score, time_taken FROM results WHERE ts >= $1 AND ts <= $2`
	args := []interface{}{since, until}
	if quizID != "" {
		query += ` AND quiz_id = $3`
		args = append(args, quizID)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("leaderboard query: %w", err)
	}
	defer rows.Close()

	best := make(map[int64]domain.LeaderboardEntry)
	for rows.Next() {
		var entry domain.LeaderboardEntry
		if err := rows.Scan(&entry.UserID, &entry.Score, &entry.TimeTakenSeconds); err != nil {
			return nil, fmt.Errorf("leaderboard scan: %w", err)
		}
		prev, ok := best[entry.UserID]
		if !ok || entry.Score > prev.Score ||
			(entry.Score == prev.Score && entry.TimeTakenSeconds < prev.TimeTakenSeconds) {
			best[entry.UserID] = entry
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leaderboard rows: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(best))
	for _, entry := range best {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].TimeTakenSeconds != entries[j].TimeTakenSeconds {
			return entries[i].TimeTakenSeconds < entries[j].TimeTakenSeconds
		}
		return entries[i].UserID < entries[j].UserID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
