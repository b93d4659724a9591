// Package enrich implements the heuristic enrichment step applied to
// festival records before insert and update.
//
// Enrichment is a total function over the submitted text fields: it
// normalizes them, assigns a category from fixed keyword lists, scores
// sentiment through a pluggable provider, computes a completeness-based
// popularity score, and extracts a short summary. With the default
// heuristic sentiment provider the whole step is deterministic.
package enrich

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/bduran04/festival-finder/internal/model"
)

// MaxDescriptionLen is the length descriptions are truncated to during
// normalization, matching the storage contract.
const MaxDescriptionLen = 500

// MaxSummaryLen caps the generated ai_summary.
const MaxSummaryLen = 200

// categoryKeywords maps each category to its trigger words. Order
// matters: the first category with a match wins.
var categoryKeywords = []struct {
	category model.Category
	words    []string
}{
	{model.CategoryMusic, []string{"music", "concert", "band", "singer"}},
	{model.CategoryFood, []string{"food", "culinary", "taste", "chef"}},
	{model.CategoryArt, []string{"art", "gallery", "artist", "painting"}},
	{model.CategoryCultural, []string{"cultural", "heritage", "tradition"}},
	{model.CategoryOutdoor, []string{"outdoor", "park", "nature"}},
}

// Enricher runs the full enrichment pipeline.
type Enricher struct {
	sentiment SentimentProvider
	logger    *slog.Logger
}

// New creates an Enricher with the given sentiment provider.
func New(sentiment SentimentProvider, logger *slog.Logger) *Enricher {
	return &Enricher{sentiment: sentiment, logger: logger}
}

// SentimentProviderName returns the name of the configured sentiment
// provider, for health reporting.
func (e *Enricher) SentimentProviderName() string {
	return e.sentiment.Name()
}

// Apply normalizes the input in place and returns the computed
// enrichment. Sentiment provider failures degrade to the neutral score
// rather than failing the request.
func (e *Enricher) Apply(ctx context.Context, in *model.FestivalInput) model.Enrichment {
	Normalize(in)

	desc := ""
	if in.Description != nil {
		desc = *in.Description
	}

	// Sentiment runs over the description, falling back to the name.
	text := desc
	if text == "" {
		text = in.Name
	}
	score, err := e.sentiment.Score(ctx, text)
	if err != nil {
		e.logger.Warn("enrich: sentiment provider failed, using neutral score",
			"provider", e.sentiment.Name(), "error", err)
		score = NeutralSentiment
	}

	return model.Enrichment{
		Category:        Categorize(in.Name, desc),
		SentimentScore:  score,
		PopularityScore: Popularity(*in),
		Summary:         Summarize(desc),
	}
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	namePrefixRe = regexp.MustCompile(`(?i)^(event[:\s]+|festival[:\s]+)`)
)

// Normalize cleans the submitted text fields in place: whitespace is
// collapsed, redundant "event:"/"festival:" name prefixes are stripped,
// and the description is capped at MaxDescriptionLen.
func Normalize(in *model.FestivalInput) {
	in.Name = namePrefixRe.ReplaceAllString(cleanText(in.Name), "")
	if in.Venue != nil {
		v := cleanText(*in.Venue)
		in.Venue = &v
	}
	if in.City != nil {
		c := cleanText(*in.City)
		in.City = &c
	}
	if in.State != nil {
		s := cleanText(*in.State)
		in.State = &s
	}
	if in.Description != nil {
		d := cleanText(*in.Description)
		if len(d) > MaxDescriptionLen {
			d = truncate(d, MaxDescriptionLen) + "..."
		}
		in.Description = &d
	}
}

func cleanText(s string) string {
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

// truncate cuts s to at most max bytes on a rune boundary, so the
// result is always valid UTF-8.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// Categorize assigns a category from the festival's name and
// description using fixed keyword lists. Unmatched text maps to
// CategoryGeneral, so the result is always a member of the closed set.
func Categorize(name, description string) model.Category {
	text := strings.ToLower(name + " " + description)
	for _, ck := range categoryKeywords {
		for _, w := range ck.words {
			if strings.Contains(text, w) {
				return ck.category
			}
		}
	}
	return model.CategoryGeneral
}

// Popularity scores record completeness on a 0..1 scale: 0.5 base,
// +0.2 for a substantial description, +0.1 for a venue, +0.1 for price
// information, and a further +0.1 when the event is free.
func Popularity(in model.FestivalInput) float64 {
	score := 0.5
	if in.Description != nil && len(*in.Description) > 50 {
		score += 0.2
	}
	if in.Venue != nil && *in.Venue != "" {
		score += 0.1
	}
	if in.Price != nil {
		score += 0.1
		if *in.Price == 0 {
			score += 0.1
		}
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

var sentenceEndRe = regexp.MustCompile(`[.!?]+\s+`)

// Summarize extracts the leading sentences of a normalized description,
// up to MaxSummaryLen. Returns empty when there is no description.
func Summarize(description string) string {
	if description == "" {
		return ""
	}
	if len(description) <= MaxSummaryLen {
		return description
	}

	var b strings.Builder
	rest := description
	for {
		loc := sentenceEndRe.FindStringIndex(rest)
		if loc == nil {
			break
		}
		sentence := rest[:loc[1]]
		if b.Len()+len(sentence) > MaxSummaryLen {
			break
		}
		b.WriteString(sentence)
		rest = rest[loc[1]:]
	}
	if b.Len() == 0 {
		return strings.TrimSpace(truncate(description, MaxSummaryLen-3)) + "..."
	}
	return strings.TrimSpace(b.String())
}
