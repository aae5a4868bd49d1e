package config

import (
	"testing"
	"time"
)

func TestLoadDefaultTimeLimit(t *testing.T) {
	t.Setenv("DEFAULT_TIME_LIMIT_SECONDS", "1200")
	cfg := Load()
	if cfg.DefaultTimeLimit != 1200*time.Second {
		t.Fatalf("expected 1200s, got %v", cfg.DefaultTimeLimit)
	}
	// Callers hand the assessment service whole seconds.
	if got := int(cfg.DefaultTimeLimit.Seconds()); got != 1200 {
		t.Fatalf("expected 1200 seconds, got %d", got)
	}
}

func TestLoadDefaultTimeLimitFallback(t *testing.T) {
	t.Setenv("DEFAULT_TIME_LIMIT_SECONDS", "")
	cfg := Load()
	if got := int(cfg.DefaultTimeLimit.Seconds()); got != 900 {
		t.Fatalf("expected fallback of 900 seconds, got %d", got)
	}
}

func TestParseOrigins(t *testing.T) {
	if got := parseOrigins(""); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
	got := parseOrigins("https://a.test, https://b.test ,")
	if len(got) != 2 || got[0] != "https://a.test" || got[1] != "https://b.test" {
		t.Fatalf("unexpected origins: %v", got)
	}
}
