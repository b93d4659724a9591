package enrich

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bduran04/festival-finder/internal/model"
	"github.com/bduran04/festival-finder/internal/testutil"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func TestNormalize(t *testing.T) {
	in := model.FestivalInput{
		Name:        "  Festival:   Summer   Jam  ",
		Venue:       strPtr("  Central\t Park  Stage "),
		City:        strPtr(" New   York "),
		Description: strPtr("  A   great   show.  "),
	}

	Normalize(&in)

	assert.Equal(t, "Summer Jam", in.Name)
	assert.Equal(t, "Central Park Stage", *in.Venue)
	assert.Equal(t, "New York", *in.City)
	assert.Equal(t, "A great show.", *in.Description)
}

func TestNormalizeStripsEventPrefix(t *testing.T) {
	for _, name := range []string{"Event: Jazz Night", "EVENT: Jazz Night", "festival: Jazz Night"} {
		in := model.FestivalInput{Name: name}
		Normalize(&in)
		assert.Equal(t, "Jazz Night", in.Name, "input %q", name)
	}

	// Names that merely contain the words keep them.
	in := model.FestivalInput{Name: "The Great Festival of Lights"}
	Normalize(&in)
	assert.Equal(t, "The Great Festival of Lights", in.Name)
}

func TestNormalizeTruncatesDescription(t *testing.T) {
	long := strings.Repeat("a", MaxDescriptionLen+100)
	in := model.FestivalInput{Name: "X", Description: &long}

	Normalize(&in)

	require.NotNil(t, in.Description)
	assert.Len(t, *in.Description, MaxDescriptionLen+3)
	assert.True(t, strings.HasSuffix(*in.Description, "..."))
}

func TestNormalizeTruncatesOnRuneBoundary(t *testing.T) {
	// An "é" (2 bytes) straddling the byte cap must not be split.
	long := strings.Repeat("a", MaxDescriptionLen-1) + "état de fête, répété encore"
	in := model.FestivalInput{Name: "X", Description: &long}

	Normalize(&in)

	require.NotNil(t, in.Description)
	assert.True(t, utf8.ValidString(*in.Description))
	assert.LessOrEqual(t, len(*in.Description), MaxDescriptionLen+3)
	assert.True(t, strings.HasSuffix(*in.Description, "..."))
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        model.Category
	}{
		{"Summer Music Fest", "", model.CategoryMusic},
		{"Downtown Days", "live concert on two stages", model.CategoryMusic},
		{"Taste of the City", "", model.CategoryFood},
		{"Gallery Walk", "local artist showcase", model.CategoryArt},
		{"Heritage Days", "celebrating local tradition", model.CategoryCultural},
		{"Lakeside Weekend", "outdoor activities all day", model.CategoryOutdoor},
		{"Annual Gathering", "a weekend of fun", model.CategoryGeneral},
	}
	for _, tt := range tests {
		got := Categorize(tt.name, tt.description)
		assert.Equal(t, tt.want, got, "name=%q desc=%q", tt.name, tt.description)
		assert.True(t, model.ValidCategory(got))
	}
}

func TestCategorizeOrderMusicBeforeFood(t *testing.T) {
	// Both keyword lists match; the earlier category wins.
	got := Categorize("Music and Food Fair", "")
	assert.Equal(t, model.CategoryMusic, got)
}

func TestPopularity(t *testing.T) {
	// Bare record: base score only.
	assert.InDelta(t, 0.5, Popularity(model.FestivalInput{Name: "X"}), 1e-9)

	// Substantial description.
	long := strings.Repeat("festival copy ", 10)
	assert.InDelta(t, 0.7, Popularity(model.FestivalInput{Name: "X", Description: &long}), 1e-9)

	// Everything, free admission: capped at 1.0.
	full := model.FestivalInput{
		Name:        "X",
		Venue:       strPtr("Main Stage"),
		Price:       floatPtr(0),
		Description: &long,
	}
	assert.InDelta(t, 1.0, Popularity(full), 1e-9)

	// Paid admission loses the free bonus.
	full.Price = floatPtr(25)
	assert.InDelta(t, 0.9, Popularity(full), 1e-9)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "", Summarize(""))

	short := "A short description."
	assert.Equal(t, short, Summarize(short))

	// Sentence accumulation stops before the cap.
	first := "First sentence here. "
	long := first + strings.Repeat("x", 300) + ". trailing"
	got := Summarize(long)
	assert.Equal(t, "First sentence here.", got)
	assert.LessOrEqual(t, len(got), MaxSummaryLen)

	// No sentence boundary: hard truncation with ellipsis.
	run := strings.Repeat("b", 400)
	got = Summarize(run)
	assert.LessOrEqual(t, len(got), MaxSummaryLen)
	assert.True(t, strings.HasSuffix(got, "..."))

	// Hard truncation must land on a rune boundary.
	multibyte := strings.Repeat("a", MaxSummaryLen-4) + strings.Repeat("é", 20)
	got = Summarize(multibyte)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), MaxSummaryLen)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "ab", truncate("abcd", 2))
	// "éé" is 4 bytes; a 3-byte cap backs off to the first rune.
	assert.Equal(t, "é", truncate("éé", 3))
	assert.Equal(t, "", truncate("é", 1))
}

func TestHeuristicScore(t *testing.T) {
	p := NewHeuristicProvider()
	ctx := context.Background()

	score, err := p.Score(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, NeutralSentiment, score)

	score, err = p.Score(ctx, "the schedule has three stages")
	require.NoError(t, err)
	assert.Equal(t, NeutralSentiment, score)

	score, err = p.Score(ctx, "an amazing, unforgettable weekend!")
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)

	score, err = p.Score(ctx, "boring and overpriced")
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)

	// Mixed text lands between the extremes.
	score, err = p.Score(ctx, "great music but terrible parking")
	require.NoError(t, err)
	assert.Greater(t, score, 0.0)
	assert.Less(t, score, 1.0)
}

func TestApplyDeterministic(t *testing.T) {
	e := New(NewHeuristicProvider(), testutil.TestLogger())
	ctx := context.Background()

	mk := func() model.FestivalInput {
		return model.FestivalInput{
			Name:        "Event:  Riverside  Music  Fest",
			Venue:       strPtr("Riverside Park"),
			Price:       floatPtr(0),
			Description: strPtr("An amazing weekend of live music. Free entry for all ages and a great lineup."),
		}
	}

	inA, inB := mk(), mk()
	a := e.Apply(ctx, &inA)
	b := e.Apply(ctx, &inB)

	assert.Equal(t, a, b)
	assert.Equal(t, inA, inB)

	assert.Equal(t, "Riverside Music Fest", inA.Name)
	assert.Equal(t, model.CategoryMusic, a.Category)
	assert.GreaterOrEqual(t, a.SentimentScore, 0.0)
	assert.LessOrEqual(t, a.SentimentScore, 1.0)
	assert.InDelta(t, 1.0, a.PopularityScore, 1e-9)
	assert.NotEmpty(t, a.Summary)
}

func TestApplySentimentFallsBackToName(t *testing.T) {
	e := New(NewHeuristicProvider(), testutil.TestLogger())

	in := model.FestivalInput{Name: "Amazing Summer Celebration"}
	enr := e.Apply(context.Background(), &in)

	// No description: sentiment comes from the name, summary is empty.
	assert.Equal(t, 1.0, enr.SentimentScore)
	assert.Empty(t, enr.Summary)
}
