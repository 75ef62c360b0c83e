package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a session id is unknown or the
	// session has already finished.
	ErrSessionNotFound = errors.New("session not found")
	// ErrStaleAnswer is returned when an answer targets a question index the
	// session has already moved past. Benign: the UI simply lost a race.
	ErrStaleAnswer = errors.New("question already progressed")
	// ErrAlreadyAnswered is returned when the question slot (solo) or the
	// submitting user (group) already resolved this question index.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrDuplicateAnswer is returned when a user other than the solo
	// participant tries to answer.
	ErrDuplicateAnswer = errors.New("answer from another user")
	// ErrInvalidOption indicates the selected option index is out of bounds.
	ErrInvalidOption = errors.New("option index out of range")
	// ErrInvalidQuiz indicates the quiz snapshot fails creation preconditions.
	ErrInvalidQuiz = errors.New("invalid quiz definition")
	// ErrDuplicateTimer indicates a deadline was armed while one is still
	// outstanding for the same (session, question) pair. Always a bug in the
	// caller's sequencing.
	ErrDuplicateTimer = errors.New("timer already armed for question")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
)
