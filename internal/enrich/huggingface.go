package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxSentimentInputLen bounds the text sent to the inference API;
// classification models truncate around this length anyway.
const maxSentimentInputLen = 512

// HuggingFaceProvider scores sentiment through the Hugging Face
// Inference API using a text-classification model. Enabled when an API
// key is configured; the enricher falls back to the neutral score on
// any transport or decode failure.
type HuggingFaceProvider struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewHuggingFaceProvider creates a provider for the given
// text-classification model, e.g.
// "cardiffnlp/twitter-roberta-base-sentiment-latest".
func NewHuggingFaceProvider(apiKey, model string) *HuggingFaceProvider {
	return &HuggingFaceProvider{
		baseURL: "https://api-inference.huggingface.co",
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Name returns "huggingface".
func (p *HuggingFaceProvider) Name() string { return "huggingface" }

type hfRequest struct {
	Inputs string `json:"inputs"`
}

type hfLabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Score classifies text and maps the top label onto 0..1:
// positive keeps its confidence, negative inverts it, anything else is
// neutral. Empty text short-circuits to the neutral score.
func (p *HuggingFaceProvider) Score(ctx context.Context, text string) (float64, error) {
	if text == "" {
		return NeutralSentiment, nil
	}
	text = truncate(text, maxSentimentInputLen)

	reqBody, err := json.Marshal(hfRequest{Inputs: text})
	if err != nil {
		return NeutralSentiment, fmt.Errorf("huggingface: marshal request: %w", err)
	}

	url := p.baseURL + "/models/" + p.model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return NeutralSentiment, fmt.Errorf("huggingface: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return NeutralSentiment, fmt.Errorf("huggingface: send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return NeutralSentiment, fmt.Errorf("huggingface: status %d: %s", resp.StatusCode, string(body))
	}

	// The classification endpoint returns one label/score list per input.
	var result [][]hfLabelScore
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return NeutralSentiment, fmt.Errorf("huggingface: decode response: %w", err)
	}
	if len(result) == 0 || len(result[0]) == 0 {
		return NeutralSentiment, fmt.Errorf("huggingface: empty classification result")
	}

	top := result[0][0]
	for _, ls := range result[0][1:] {
		if ls.Score > top.Score {
			top = ls
		}
	}

	switch strings.ToLower(top.Label) {
	case "positive", "label_2":
		return top.Score, nil
	case "negative", "label_0":
		return 1 - top.Score, nil
	default:
		return NeutralSentiment, nil
	}
}
