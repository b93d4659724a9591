package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestHFProvider points a provider at a stub inference server.
func newTestHFProvider(t *testing.T, handler http.HandlerFunc) *HuggingFaceProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewHuggingFaceProvider("test-key", "test-model")
	p.baseURL = srv.URL
	return p
}

func classificationResponse(labels ...hfLabelScore) []byte {
	data, _ := json.Marshal([][]hfLabelScore{labels})
	return data
}

func TestHuggingFaceScorePositive(t *testing.T) {
	p := newTestHFProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/test-model", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req hfRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "what a lineup", req.Inputs)

		_, _ = w.Write(classificationResponse(
			hfLabelScore{Label: "positive", Score: 0.91},
			hfLabelScore{Label: "negative", Score: 0.04},
			hfLabelScore{Label: "neutral", Score: 0.05},
		))
	})

	score, err := p.Score(context.Background(), "what a lineup")
	require.NoError(t, err)
	assert.InDelta(t, 0.91, score, 1e-9)
}

func TestHuggingFaceScoreNegativeInverts(t *testing.T) {
	p := newTestHFProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(classificationResponse(
			hfLabelScore{Label: "negative", Score: 0.8},
			hfLabelScore{Label: "positive", Score: 0.2},
		))
	})

	score, err := p.Score(context.Background(), "never again")
	require.NoError(t, err)
	assert.InDelta(t, 0.2, score, 1e-9)
}

func TestHuggingFaceScoreBareLabels(t *testing.T) {
	// Models without a friendly label map emit LABEL_0/1/2.
	p := newTestHFProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(classificationResponse(
			hfLabelScore{Label: "LABEL_2", Score: 0.75},
			hfLabelScore{Label: "LABEL_0", Score: 0.25},
		))
	})

	score, err := p.Score(context.Background(), "good times")
	require.NoError(t, err)
	assert.InDelta(t, 0.75, score, 1e-9)
}

func TestHuggingFaceScoreNeutralTopLabel(t *testing.T) {
	p := newTestHFProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(classificationResponse(
			hfLabelScore{Label: "neutral", Score: 0.6},
			hfLabelScore{Label: "positive", Score: 0.4},
		))
	})

	score, err := p.Score(context.Background(), "the gates open at nine")
	require.NoError(t, err)
	assert.Equal(t, NeutralSentiment, score)
}

func TestHuggingFaceScoreServerError(t *testing.T) {
	p := newTestHFProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	})

	score, err := p.Score(context.Background(), "anything")
	require.Error(t, err)
	assert.Equal(t, NeutralSentiment, score)
}

func TestHuggingFaceScoreEmptyText(t *testing.T) {
	p := newTestHFProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty text")
	})

	score, err := p.Score(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, NeutralSentiment, score)
}

func TestHuggingFaceScoreTruncatesLongInput(t *testing.T) {
	long := make([]byte, maxSentimentInputLen*2)
	for i := range long {
		long[i] = 'a'
	}

	p := newTestHFProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var req hfRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Inputs, maxSentimentInputLen)
		_, _ = w.Write(classificationResponse(hfLabelScore{Label: "positive", Score: 0.5}))
	})

	_, err := p.Score(context.Background(), string(long))
	require.NoError(t, err)
}
