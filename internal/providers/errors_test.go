package providers

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyError(t *testing.T) {
	cases := map[string]ErrorType{
		"insufficient_quota": ErrorQuota,
		"429 rate":           ErrorRate,
		"context too long":   ErrorContext,
		"timeout":            ErrorTransient,
		"bad request":        ErrorPermanent,
	}
	for msg, want := range cases {
		if got := ClassifyError(errors.New(msg)); got != want {
			t.Fatalf("classify %q: got %s want %s", msg, got, want)
		}
	}
}

func TestClassifyHTTPError(t *testing.T) {
	wrapped := fmt.Errorf("embed: %w", &HTTPError{Provider: "openai", Status: 503, Body: "upstream"})
	if got := ClassifyError(wrapped); got != ErrorTransient {
		t.Fatalf("expected transient, got %s", got)
	}
	if !Retryable(&HTTPError{Provider: "openai", Status: 429, Body: "slow down"}) {
		t.Fatalf("429 should be retryable")
	}
	if Retryable(&HTTPError{Provider: "openai", Status: 401, Body: "invalid key"}) {
		t.Fatalf("401 should not be retryable")
	}
}
