package enrich

import (
	"context"
	"strings"
)

// NeutralSentiment is the score used for empty text, neutral text, and
// provider failures.
const NeutralSentiment = 0.5

// SentimentProvider scores the sentiment of a piece of text on a 0..1
// scale (0 = negative, 1 = positive). Implementations must be safe for
// concurrent use.
type SentimentProvider interface {
	// Score returns the sentiment of text. Callers treat errors as
	// fail-neutral: the record is stored with NeutralSentiment.
	Score(ctx context.Context, text string) (float64, error)

	// Name identifies the provider for logs and health reporting.
	Name() string
}

// Word lists for the heuristic provider. Kept small on purpose: the
// goal is a stable, explainable signal for event copy, not general
// sentiment analysis.
var (
	positiveWords = []string{
		"amazing", "awesome", "best", "celebrate", "delicious", "enjoy",
		"exciting", "fantastic", "favorite", "free", "fun", "great",
		"incredible", "legendary", "love", "spectacular", "unforgettable",
		"vibrant", "wonderful",
	}
	negativeWords = []string{
		"avoid", "bad", "boring", "cancelled", "crowded", "disappointing",
		"expensive", "overpriced", "poor", "terrible", "worst",
	}
)

// HeuristicProvider scores sentiment from fixed positive/negative word
// lists. Deterministic and total; the default provider when no
// inference API key is configured.
type HeuristicProvider struct{}

// NewHeuristicProvider creates the lexicon-based provider.
func NewHeuristicProvider() HeuristicProvider {
	return HeuristicProvider{}
}

// Name returns "heuristic".
func (HeuristicProvider) Name() string { return "heuristic" }

// Score counts positive and negative lexicon hits and maps the balance
// onto 0..1. Text with no hits scores NeutralSentiment.
func (HeuristicProvider) Score(_ context.Context, text string) (float64, error) {
	if text == "" {
		return NeutralSentiment, nil
	}

	var pos, neg int
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:'\"()")
		if containsWord(positiveWords, w) {
			pos++
		} else if containsWord(negativeWords, w) {
			neg++
		}
	}
	if pos+neg == 0 {
		return NeutralSentiment, nil
	}
	return 0.5 + 0.5*float64(pos-neg)/float64(pos+neg), nil
}

func containsWord(words []string, w string) bool {
	for _, v := range words {
		if v == w {
			return true
		}
	}
	return false
}
