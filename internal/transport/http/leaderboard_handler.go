package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"timed-quiz-service/internal/domain"
)

// LeaderboardSource serves aggregated best-run-per-user rankings.
type LeaderboardSource interface {
	Leaderboard(ctx context.Context, since, until int64, quizID string, limit int) ([]domain.LeaderboardEntry, error)
}

// LeaderboardHandler exposes GET /leaderboard?window=daily|weekly&quizId=...
// mirroring the chat-command timeframes: daily (default), weekly, or the
// full history of one quiz.
type LeaderboardHandler struct {
	source LeaderboardSource
	now    func() time.Time
}

func NewLeaderboardHandler(source LeaderboardSource) *LeaderboardHandler {
	return &LeaderboardHandler{source: source, now: time.Now}
}

const leaderboardLimit = 10

func (h *LeaderboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	until := now.Unix()
	quizID := r.URL.Query().Get("quizId")

	var since int64
	switch r.URL.Query().Get("window") {
	case "", "daily":
		since = now.Add(-24 * time.Hour).Unix()
	case "weekly":
		since = now.Add(-7 * 24 * time.Hour).Unix()
	case "all":
		since = 0
	default:
		http.Error(w, "window must be daily, weekly, or all", http.StatusBadRequest)
		return
	}
	if quizID != "" {
		since = 0
	}

	entries, err := h.source.Leaderboard(r.Context(), since, until, quizID, leaderboardLimit)
	if err != nil {
		log.Printf("leaderboard query failed: %v", err)
		http.Error(w, "leaderboard unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		log.Printf("leaderboard encode failed: %v", err)
	}
}
