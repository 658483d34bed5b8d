package script

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ternarybob/fabrica/internal/interfaces"
)

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"429 status", errors.New("googleapi: Error 429: rate limited"), true},
		{"resource exhausted", errors.New("rpc error: code = ResourceExhausted desc = RESOURCE_EXHAUSTED"), true},
		{"quota", errors.New("quota exceeded for model"), true},
		{"unrelated", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRateLimitError(tt.err); got != tt.want {
				t.Errorf("IsRateLimitError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestExtractRetryDelay(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want time.Duration
	}{
		{"nil", nil, 0},
		{"please retry", errors.New("429: Please retry in 30s"), 30 * time.Second},
		{"retryDelay field", errors.New(`{"retryDelay": 12s}`), 12 * time.Second},
		{"quoted retryDelay field", errors.New(`{"error": {"details": [{"retryDelay": "12s"}]}}`), 12 * time.Second},
		{"fractional", errors.New("Please retry in 2.5s"), 2500 * time.Millisecond},
		{"no delay", errors.New("429 rate limited"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractRetryDelay(tt.err); got != tt.want {
				t.Errorf("ExtractRetryDelay(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	config := NewDefaultRetryConfig()

	// First attempt uses the initial backoff
	if got := config.CalculateBackoff(0, 0); got != DefaultInitialBackoff {
		t.Errorf("attempt 0 backoff = %v, want %v", got, DefaultInitialBackoff)
	}

	// Later attempts grow but stay capped
	if got := config.CalculateBackoff(1, 0); got != 67500*time.Millisecond {
		t.Errorf("attempt 1 backoff = %v, want 1m7.5s", got)
	}
	if got := config.CalculateBackoff(10, 0); got != DefaultMaxBackoff {
		t.Errorf("attempt 10 backoff = %v, want cap %v", got, DefaultMaxBackoff)
	}

	// An API-suggested delay overrides the initial backoff, plus buffer
	if got := config.CalculateBackoff(0, 20*time.Second); got != 25*time.Second {
		t.Errorf("api-delay backoff = %v, want 25s", got)
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt(interfaces.ScriptRequest{
		Title:       "Intro to Go",
		Description: "A short introduction",
		Duration:    90,
		Style:       "conversational",
	})

	for _, want := range []string{"Intro to Go", "A short introduction", "90 seconds", "conversational"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildPrompt_OmitsEmptyHints(t *testing.T) {
	prompt := buildPrompt(interfaces.ScriptRequest{
		Title:       "T",
		Description: "D",
	})

	if strings.Contains(prompt, "Style:") {
		t.Error("prompt must omit the style line when no style is given")
	}
	if strings.Contains(prompt, "seconds") {
		t.Error("prompt must omit the duration line when no duration is given")
	}
}
