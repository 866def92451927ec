package domain

import "fmt"

// Question is a single multiple-choice catalog entry.
type Question struct {
	ClassLevel    int      `json:"class_level"`
	LanguageCode  string   `json:"language_code"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// Validate checks the catalog invariants of a question.
func (q Question) Validate() error {
	if q.ClassLevel < MinClassLevel || q.ClassLevel > MaxClassLevel {
		return fmt.Errorf("%w: class level %d out of range", ErrInvalidQuestion, q.ClassLevel)
	}
	if q.LanguageCode == "" {
		return fmt.Errorf("%w: missing language code", ErrInvalidQuestion)
	}
	seen := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		if _, ok := seen[opt]; ok {
			return fmt.Errorf("%w: duplicate option %q", ErrInvalidQuestion, opt)
		}
		seen[opt] = struct{}{}
	}
	if _, ok := seen[q.CorrectAnswer]; !ok {
		return fmt.Errorf("%w: correct answer %q is not an option", ErrInvalidQuestion, q.CorrectAnswer)
	}
	return nil
}

// HasOption reports whether option is one of the question's choices.
func (q Question) HasOption(option string) bool {
	for _, opt := range q.Options {
		if opt == option {
			return true
		}
	}
	return false
}

// AffiliateLink is opaque display data for the results page.
type AffiliateLink struct {
	URL         string `json:"url"`
	Image       string `json:"image"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Outcome is emitted when a session completes.
type Outcome struct {
	Score int `json:"score"`
	Total int `json:"total"`
}

// ResultTier buckets a final score.
type ResultTier string

const (
	ResultCongrats      ResultTier = "congrats"
	ResultClose         ResultTier = "close"
	ResultEncouragement ResultTier = "encouragement"
)

// ResultMessage is the localized message for a result tier.
type ResultMessage struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Result is everything the results view needs.
type Result struct {
	Score   int           `json:"score"`
	Total   int           `json:"total"`
	Percent int           `json:"percent"`
	Tier    ResultTier    `json:"tier"`
	Message ResultMessage `json:"message"`
	Share   string        `json:"share"`
}
