package app

import (
	"go.uber.org/zap"

	"trivia-quiz-service/internal/domain"
)

// ValidQuestions drops questions that break catalog invariants, logging each one.
func ValidQuestions(questions []domain.Question, log *zap.Logger) []domain.Question {
	out := make([]domain.Question, 0, len(questions))
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			log.Warn("skipping invalid question", zap.Int("index", i), zap.Error(err))
			continue
		}
		out = append(out, q)
	}
	return out
}
