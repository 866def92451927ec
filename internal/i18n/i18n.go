// Package i18n holds the per-locale strings of the quiz.
package i18n

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"trivia-quiz-service/internal/domain"
)

// DefaultLanguage is used when no supported preference is given.
const DefaultLanguage = "en"

// supported lists locale codes in the order they are offered to users.
var supported = []string{"en", "ja", "zh-Hans", "zh-Hant", "es", "fr", "it", "ko", "th"}

//go:embed locales.yaml
var localesYAML []byte

type TierText struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

// Locale is the string table for one language.
type Locale struct {
	Code        string                                     `yaml:"-"`
	Name        string                                     `yaml:"name"`
	NativeName  string                                     `yaml:"native_name"`
	Title       string                                     `yaml:"title"`
	Tiers       map[domain.DifficultyTier]TierText         `yaml:"tiers"`
	Results     map[domain.ResultTier]domain.ResultMessage `yaml:"results"`
	Share       string                                     `yaml:"share"`
	Correct     string                                     `yaml:"correct"`
	Incorrect   string                                     `yaml:"incorrect"`
	NoQuestions string                                     `yaml:"no_questions"`
}

// Catalog indexes locales by language code.
type Catalog struct {
	locales map[string]*Locale
}

// Load parses the embedded locale table.
func Load() (*Catalog, error) {
	return Parse(localesYAML)
}

// MustLoad is Load for package-level wiring where the embedded table is known good.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse decodes a locale table and checks that every supported code is complete.
func Parse(data []byte) (*Catalog, error) {
	raw := make(map[string]*Locale)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal locales: %w", err)
	}
	for _, code := range supported {
		loc, ok := raw[code]
		if !ok {
			return nil, fmt.Errorf("locale %s: missing", code)
		}
		loc.Code = code
		for _, tier := range domain.Tiers() {
			if _, ok := loc.Tiers[tier]; !ok {
				return nil, fmt.Errorf("locale %s: missing tier %s", code, tier)
			}
		}
		for _, rt := range []domain.ResultTier{domain.ResultCongrats, domain.ResultClose, domain.ResultEncouragement} {
			if _, ok := loc.Results[rt]; !ok {
				return nil, fmt.Errorf("locale %s: missing result %s", code, rt)
			}
		}
		if err := checkTemplate(loc.Share, 7, 10); err != nil {
			return nil, fmt.Errorf("locale %s: share: %w", code, err)
		}
		if err := checkTemplate(loc.Incorrect, "Tokyo"); err != nil {
			return nil, fmt.Errorf("locale %s: incorrect: %w", code, err)
		}
	}
	return &Catalog{locales: raw}, nil
}

// checkTemplate renders format with args and rejects the output fmt produces
// for missing, extra or mistyped verbs.
func checkTemplate(format string, args ...any) error {
	if format == "" {
		return fmt.Errorf("empty template")
	}
	if out := fmt.Sprintf(format, args...); strings.Contains(out, "%!") {
		return fmt.Errorf("template %q does not take %d argument(s): %s", format, len(args), out)
	}
	return nil
}

// Supported returns the supported language codes in display order.
func Supported() []string {
	out := make([]string, len(supported))
	copy(out, supported)
	return out
}

// IsSupported reports whether lang has a locale.
func IsSupported(lang string) bool {
	for _, code := range supported {
		if code == lang {
			return true
		}
	}
	return false
}

// Resolve returns the first supported code among candidates, or DefaultLanguage.
func Resolve(candidates ...string) string {
	for _, c := range candidates {
		if IsSupported(c) {
			return c
		}
	}
	return DefaultLanguage
}

// Locale returns the table for lang, falling back to the default language.
func (c *Catalog) Locale(lang string) *Locale {
	if loc, ok := c.locales[lang]; ok && IsSupported(lang) {
		return loc
	}
	return c.locales[DefaultLanguage]
}

// Languages returns the supported locales in display order.
func (c *Catalog) Languages() []*Locale {
	out := make([]*Locale, 0, len(supported))
	for _, code := range supported {
		out = append(out, c.locales[code])
	}
	return out
}

// ShareText formats the share message for a score.
func (l *Locale) ShareText(score, total int) string {
	return fmt.Sprintf(l.Share, score, total)
}

// Feedback formats the answer feedback line.
func (l *Locale) Feedback(correct bool, correctAnswer string) string {
	if correct {
		return l.Correct
	}
	return fmt.Sprintf(l.Incorrect, correctAnswer)
}
