package fetcher

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func TestShouldRetry_StatusCodes(t *testing.T) {
	policy := NewRetryPolicy(3)

	tests := []struct {
		name       string
		attempt    int
		statusCode int
		want       bool
	}{
		{"500 retryable", 0, 500, true},
		{"502 retryable", 0, 502, true},
		{"503 retryable", 0, 503, true},
		{"504 retryable", 0, 504, true},
		{"429 retryable", 0, 429, true},
		{"408 retryable", 0, 408, true},
		{"404 permanent", 0, 404, false},
		{"403 permanent", 0, 403, false},
		{"401 permanent", 0, 401, false},
		{"410 permanent", 0, 410, false},
		{"exhausted attempts", 3, 500, false},
		{"last allowed attempt", 2, 500, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.ShouldRetry(tt.attempt, tt.statusCode, nil); got != tt.want {
				t.Errorf("ShouldRetry(%d, %d) = %v, want %v", tt.attempt, tt.statusCode, got, tt.want)
			}
		})
	}
}

func TestShouldRetry_Errors(t *testing.T) {
	policy := NewRetryPolicy(3)

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"cancelled", context.Canceled, false},
		{"dns failure", &net.DNSError{Err: "no such host", Name: "missing.example.com", IsNotFound: true}, false},
		{"connection reset", &net.OpError{Op: "read", Err: errors.New("connection reset by peer")}, true},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.ShouldRetry(0, 0, tt.err); got != tt.want {
				t.Errorf("ShouldRetry(err=%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_GrowsAndCaps(t *testing.T) {
	policy := NewRetryPolicy(5)

	// Jitter is ±25%, so bound checks rather than exact values.
	for attempt := 0; attempt < 5; attempt++ {
		backoff := policy.CalculateBackoff(attempt)
		expected := float64(policy.InitialBackoff) * 1
		for i := 0; i < attempt; i++ {
			expected *= policy.BackoffMultiplier
		}
		if expected > float64(policy.MaxBackoff) {
			expected = float64(policy.MaxBackoff)
		}
		min := time.Duration(expected * 0.74)
		max := time.Duration(expected * 1.26)
		if backoff < min || backoff > max {
			t.Errorf("attempt %d: backoff %v outside [%v, %v]", attempt, backoff, min, max)
		}
	}
}

func TestCalculateBackoff_NeverExceedsMaxPlusJitter(t *testing.T) {
	policy := NewRetryPolicy(10)
	backoff := policy.CalculateBackoff(20)
	limit := time.Duration(float64(policy.MaxBackoff) * 1.26)
	if backoff > limit {
		t.Errorf("backoff %v exceeds cap %v", backoff, limit)
	}
}
