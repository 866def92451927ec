package domain

import "errors"

var (
	// ErrResourceUnavailable is returned when a catalog cannot be fetched or decoded.
	ErrResourceUnavailable = errors.New("resource unavailable")
	// ErrInvalidDifficulty is returned for an unknown difficulty tier.
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	// ErrInvalidTransition is returned when a session operation is not allowed in its current state.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrEmptyQuestionSet indicates no questions matched the requested tier and language.
	ErrEmptyQuestionSet = errors.New("no questions available for this selection")
	// ErrSessionNotFound is returned when a quiz session does not exist or has been discarded.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrOptionNotFound indicates a selected option is not one of the current question's options.
	ErrOptionNotFound = errors.New("option not found")
	// ErrUnsupportedLanguage is returned for a language code outside the locale table.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrInvalidQuestion marks a catalog record that breaks the question invariants.
	ErrInvalidQuestion = errors.New("invalid question")
)
