package recognizers

import (
	"context"
	"regexp"
	"strings"
)

// Recognizer maps an utterance to intents and entities with confidence
// scores.
type Recognizer interface {
	Recognize(ctx context.Context, text string) (*Result, error)
}

// IntentPattern pairs an intent name with the expression that triggers it.
type IntentPattern struct {
	Intent  string
	Pattern *regexp.Regexp
}

// RegexpRecognizer maps utterances to intents with regular expressions.
// Patterns are evaluated in registration order; every matching pattern
// contributes its intent, and named capture groups become entities.
type RegexpRecognizer struct {
	patterns []IntentPattern
}

func NewRegexpRecognizer(patterns ...IntentPattern) *RegexpRecognizer {
	return &RegexpRecognizer{patterns: patterns}
}

// AddIntent registers pattern under intent. Invalid expressions return the
// compile error.
func (r *RegexpRecognizer) AddIntent(intent, pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.patterns = append(r.patterns, IntentPattern{Intent: intent, Pattern: re})
	return nil
}

// Recognize scores text against the registered patterns. Entities from
// named groups accumulate as lists so repeated mentions are preserved.
func (r *RegexpRecognizer) Recognize(ctx context.Context, text string) (*Result, error) {
	result := &Result{
		Text:    text,
		Intents: NewIntentMap(),
	}

	trimmed := strings.TrimSpace(text)
	for _, p := range r.patterns {
		match := p.Pattern.FindStringSubmatch(trimmed)
		if match == nil {
			continue
		}
		// Coverage ratio of the match stands in for confidence.
		score := 1.0
		if len(trimmed) > 0 {
			score = float64(len(match[0])) / float64(len(trimmed))
		}
		result.Intents.SetScore(p.Intent, score)

		for i, name := range p.Pattern.SubexpNames() {
			if i == 0 || name == "" || match[i] == "" {
				continue
			}
			if result.Entities == nil {
				result.Entities = map[string]any{}
			}
			existing, _ := result.Entities[name].([]any)
			result.Entities[name] = append(existing, match[i])
		}
	}

	return result, nil
}
