package domain

// Mode selects how answers are aggregated for a session.
type Mode string

const (
	// ModeSolo runs a quiz for a single fixed participant.
	ModeSolo Mode = "solo"
	// ModeGroup lets any number of users race the same question window.
	ModeGroup Mode = "group"
)

const (
	// OptionCount is the fixed number of options per question.
	OptionCount = 4
	// MinTimePerQuestion and MaxTimePerQuestion bound the per-question
	// deadline in seconds.
	MinTimePerQuestion = 5
	MaxTimePerQuestion = 600
)

// Question models an MCQ question with exactly one correct option out of four.
type Question struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

// Quiz is an ordered sequence of questions sharing one per-question time limit.
type Quiz struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Subject         string     `json:"subject"`
	TimePerQuestion int        `json:"timePerQuestion"` // seconds
	Premium         bool       `json:"premium"`
	Questions       []Question `json:"questions"`
}

// Validate checks the creation-time preconditions for running a quiz.
func (q Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return ErrInvalidQuiz
	}
	if q.TimePerQuestion < MinTimePerQuestion || q.TimePerQuestion > MaxTimePerQuestion {
		return ErrInvalidQuiz
	}
	for _, question := range q.Questions {
		if len(question.Options) != OptionCount {
			return ErrInvalidQuiz
		}
		if question.CorrectIndex < 0 || question.CorrectIndex >= len(question.Options) {
			return ErrInvalidQuiz
		}
	}
	return nil
}

// TimedOut is the sentinel selection recorded when a question expires unanswered.
const TimedOut = -1

// AnswerRecord captures how a single question resolved for a solo session.
// Selected is TimedOut when the deadline fired before an answer arrived.
type AnswerRecord struct {
	Selected         int   `json:"selected"`
	CorrectIndex     int   `json:"correctIndex"`
	Correct          bool  `json:"correct"`
	TimeTakenSeconds int64 `json:"timeTakenSeconds"`
}

// Outcome summarizes one accepted answer for one participant.
type Outcome struct {
	SessionID     string `json:"sessionId"`
	UserID        int64  `json:"userId"`
	QuestionIndex int    `json:"questionIndex"`
	Selected      int    `json:"selected"`
	CorrectIndex  int    `json:"correctIndex"`
	Correct       bool   `json:"correct"`
	Score         int    `json:"score"` // cumulative score of the answering user
}

// UserScore is one row of a session ranking.
type UserScore struct {
	UserID int64 `json:"userId"`
	Score  int   `json:"score"`
}

// FinalSummary is the terminal score report of a finished session.
// Ranking is sorted by score descending, then user id ascending, so callers
// can reproduce the presentation order deterministically.
type FinalSummary struct {
	SessionID        string      `json:"sessionId"`
	QuizID           string      `json:"quizId"`
	Mode             Mode        `json:"mode"`
	TotalQuestions   int         `json:"totalQuestions"`
	Score            int         `json:"score"`
	AccuracyPercent  float64     `json:"accuracyPercent"`
	TimeTakenSeconds int64       `json:"timeTakenSeconds"`
	Ranking          []UserScore `json:"ranking"`
}

// Result is the persisted record of one user's finished run.
type Result struct {
	UserID           int64  `json:"userId"`
	QuizID           string `json:"quizId"`
	Score            int    `json:"score"`
	Timestamp        int64  `json:"timestamp"`
	TimeTakenSeconds int64  `json:"timeTakenSeconds"`
}

// LeaderboardEntry is one aggregated leaderboard row: the user's best run
// within the queried timeframe.
type LeaderboardEntry struct {
	UserID           int64 `json:"userId"`
	Score            int   `json:"score"`
	TimeTakenSeconds int64 `json:"timeTakenSeconds"`
}

// QuestionView is the pending question as shown to participants. It never
// carries the correct index.
type QuestionView struct {
	Index   int      `json:"index"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// SessionView is a read-only projection of a live session for rendering.
type SessionView struct {
	ID              string        `json:"id"`
	Mode            Mode          `json:"mode"`
	QuizID          string        `json:"quizId"`
	QuizTitle       string        `json:"quizTitle"`
	OwnerID         int64         `json:"ownerId"`
	Destination     string        `json:"destination"`
	CurrentIndex    int           `json:"currentIndex"`
	TotalQuestions  int           `json:"totalQuestions"`
	TimePerQuestion int           `json:"timePerQuestion"`
	Question        *QuestionView `json:"question,omitempty"` // nil once finished
}
