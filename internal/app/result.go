package app

import (
	"github.com/shopspring/decimal"

	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/i18n"
)

var (
	congratsRatio = decimal.RequireFromString("0.8")
	closeRatio    = decimal.RequireFromString("0.5")
	hundred       = decimal.NewFromInt(100)
)

// ResultTierFor buckets score out of total by ratio, so the thresholds hold
// for any quiz length: >= 0.8 congrats, >= 0.5 close, anything else encouragement.
func ResultTierFor(score, total int) domain.ResultTier {
	ratio := scoreRatio(score, total)
	switch {
	case ratio.GreaterThanOrEqual(congratsRatio):
		return domain.ResultCongrats
	case ratio.GreaterThanOrEqual(closeRatio):
		return domain.ResultClose
	default:
		return domain.ResultEncouragement
	}
}

// BuildResult maps a final score to the localized result view.
func BuildResult(locale *i18n.Locale, score, total int) domain.Result {
	if total < 0 {
		total = 0
	}
	score = clamp(score, 0, total)

	tier := ResultTierFor(score, total)
	return domain.Result{
		Score:   score,
		Total:   total,
		Percent: int(scoreRatio(score, total).Mul(hundred).Round(0).IntPart()),
		Tier:    tier,
		Message: locale.Results[tier],
		Share:   locale.ShareText(score, total),
	}
}

func scoreRatio(score, total int) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(clamp(score, 0, total))).Div(decimal.NewFromInt(int64(total)))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
