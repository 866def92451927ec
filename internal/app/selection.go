package app

import (
	"math/rand"

	"trivia-quiz-service/internal/domain"
)

// DefaultPerClass is the number of questions drawn from each class level.
const DefaultPerClass = 5

// Shuffle permutes items in place with Fisher-Yates. After the iteration for
// index i, items[i] is a uniform draw from the i+1 elements not yet fixed, so
// every permutation has probability 1/n!.
func Shuffle[T any](rnd *rand.Rand, items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

// SelectQuestions builds the ordered question list for a tier and language:
// up to perClass random questions from the lower class level followed by up
// to perClass from the higher one. The catalog is not modified.
func SelectQuestions(rnd *rand.Rand, tier domain.DifficultyTier, language string, catalog []domain.Question, perClass int) ([]domain.Question, error) {
	levels, err := domain.ClassLevels(tier)
	if err != nil {
		return nil, err
	}
	if perClass <= 0 {
		perClass = DefaultPerClass
	}

	selected := make([]domain.Question, 0, 2*perClass)
	for _, level := range levels {
		pool := filterPool(catalog, level, language)
		Shuffle(rnd, pool)
		selected = append(selected, takeFirst(pool, perClass)...)
	}
	return selected, nil
}

func filterPool(catalog []domain.Question, level int, language string) []domain.Question {
	var pool []domain.Question
	for _, q := range catalog {
		if q.ClassLevel == level && q.LanguageCode == language {
			pool = append(pool, q)
		}
	}
	return pool
}

// takeFirst returns the first n elements, or the whole slice if it is shorter.
func takeFirst[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
