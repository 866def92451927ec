package domain

const (
	MinClassLevel = 1
	MaxClassLevel = 5
)

// DifficultyTier is a user-facing difficulty label.
type DifficultyTier string

const (
	TierBeginner     DifficultyTier = "beginner"
	TierIntermediate DifficultyTier = "intermediate"
	TierAdvanced     DifficultyTier = "advanced"
	TierJapanese     DifficultyTier = "japanese"
)

// ClassPair holds the two catalog class levels a tier draws from, lower first.
type ClassPair [2]int

var tierClasses = map[DifficultyTier]ClassPair{
	TierBeginner:     {1, 2},
	TierIntermediate: {2, 3},
	TierAdvanced:     {3, 4},
	TierJapanese:     {4, 5},
}

// Tiers lists the tiers in display order.
func Tiers() []DifficultyTier {
	return []DifficultyTier{TierBeginner, TierIntermediate, TierAdvanced, TierJapanese}
}

// ClassLevels resolves a tier to its class levels.
func ClassLevels(tier DifficultyTier) (ClassPair, error) {
	pair, ok := tierClasses[tier]
	if !ok {
		return ClassPair{}, ErrInvalidDifficulty
	}
	return pair, nil
}
