package model

import (
	"time"
)

// Category classifies a festival. The set is closed: every stored
// festival carries exactly one of these values, defaulting to
// CategoryGeneral when enrichment finds no keyword match.
type Category string

const (
	CategoryMusic    Category = "music_festival"
	CategoryFood     Category = "food_festival"
	CategoryArt      Category = "art_festival"
	CategoryCultural Category = "cultural_festival"
	CategoryOutdoor  Category = "outdoor_festival"
	CategoryGeneral  Category = "general"
)

// Categories returns all valid category values in display order.
func Categories() []Category {
	return []Category{
		CategoryMusic,
		CategoryFood,
		CategoryArt,
		CategoryCultural,
		CategoryOutdoor,
		CategoryGeneral,
	}
}

// ValidCategory reports whether c is a member of the closed category set.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryMusic, CategoryFood, CategoryArt,
		CategoryCultural, CategoryOutdoor, CategoryGeneral:
		return true
	}
	return false
}

// Festival is a stored festival listing. ID, timestamps, and the
// enrichment outputs (category, ai_summary, sentiment_score,
// popularity_score) are server-assigned; everything else round-trips
// from the submitted record unchanged.
type Festival struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Venue           *string    `json:"venue,omitempty"`
	City            *string    `json:"city,omitempty"`
	State           *string    `json:"state,omitempty"`
	Date            *time.Time `json:"date,omitempty"`
	Price           *float64   `json:"price,omitempty"`
	URL             *string    `json:"url,omitempty"`
	Description     *string    `json:"description,omitempty"`
	Category        Category   `json:"category"`
	AISummary       *string    `json:"ai_summary,omitempty"`
	SentimentScore  *float64   `json:"sentiment_score,omitempty"`
	PopularityScore *float64   `json:"popularity_score,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Enrichment holds the computed outputs of the enrichment step.
// Summary is empty when the record has no description.
type Enrichment struct {
	Category        Category `json:"category"`
	SentimentScore  float64  `json:"sentiment_score"`
	PopularityScore float64  `json:"popularity_score"`
	Summary         string   `json:"ai_summary,omitempty"`
}

// ListFilters narrows a festival listing query.
// City is a case-insensitive substring match; Category is exact.
type ListFilters struct {
	City     string
	Category Category
	Limit    int
	Offset   int
}

// SearchResult pairs a festival with its full-text rank.
type SearchResult struct {
	Festival Festival `json:"festival"`
	Rank     float32  `json:"rank"`
}

// CategoryCount is one row of the per-category aggregate.
type CategoryCount struct {
	Category Category `json:"category"`
	Total    int64    `json:"total"`
}

// Stats is the aggregate returned by GET /api/stats.
type Stats struct {
	TotalFestivals int64            `json:"total_festivals"`
	Categories     map[string]int64 `json:"categories"`
	Status         string           `json:"status"`
}
