package scan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 30 * time.Second},
		{attempt: 2, want: 60 * time.Second},
		{attempt: 3, want: 120 * time.Second},
		// Attempts below 1 are treated as the first retry.
		{attempt: 0, want: 30 * time.Second},
		{attempt: -1, want: 30 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RetryBackoff(tt.attempt), "attempt %d", tt.attempt)
	}
}
