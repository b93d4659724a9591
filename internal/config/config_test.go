package config

import (
	"testing"
	"time"
)

func TestEnvStrFallback(t *testing.T) {
	if got := envStr("TEST_STR_MISSING", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv("TEST_STR", "value")
	if got := envStr("TEST_STR", "fallback"); got != "value" {
		t.Fatalf("expected value, got %q", got)
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	if got := envInt("TEST_INT", 0); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	if got := envInt("TEST_INT_MISSING", 99); got != 99 {
		t.Fatalf("expected fallback 99, got %d", got)
	}
	// Unparseable values fall back to the default.
	t.Setenv("TEST_INT_BAD", "abc")
	if got := envInt("TEST_INT_BAD", 7); got != 7 {
		t.Fatalf("expected fallback 7 for invalid value, got %d", got)
	}
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("TEST_DUR", "45s")
	if got := envDuration("TEST_DUR", time.Minute); got != 45*time.Second {
		t.Fatalf("expected 45s, got %v", got)
	}
	if got := envDuration("TEST_DUR_MISSING", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback 1m, got %v", got)
	}
}

func TestEnvList(t *testing.T) {
	t.Setenv("TEST_LIST", "https://a.example, https://b.example")
	got := envList("TEST_LIST", nil)
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("unexpected list: %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with defaults: %v", err)
	}
	if cfg.Port != 8000 {
		t.Fatalf("expected default port 8000, got %d", cfg.Port)
	}
	if cfg.SentimentProvider != "auto" {
		t.Fatalf("expected default sentiment provider auto, got %q", cfg.SentimentProvider)
	}
	if !cfg.RateLimitEnabled {
		t.Fatal("expected rate limiting enabled by default")
	}
}

func TestValidateRejectsBadProvider(t *testing.T) {
	t.Setenv("FESTFINDER_SENTIMENT_PROVIDER", "oracle")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown sentiment provider")
	}
}

func TestValidateHuggingFaceNeedsKey(t *testing.T) {
	t.Setenv("FESTFINDER_SENTIMENT_PROVIDER", "huggingface")
	t.Setenv("HUGGINGFACE_API_KEY", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when huggingface provider has no API key")
	}
}

func TestValidateRejectsZeroBodyLimit(t *testing.T) {
	t.Setenv("FESTFINDER_MAX_REQUEST_BODY_BYTES", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero body limit")
	}
}
