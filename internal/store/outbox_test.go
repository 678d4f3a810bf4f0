package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffCurve(t *testing.T) {
	assert.Equal(t, 2*time.Second, Backoff(1))
	assert.Equal(t, 4*time.Second, Backoff(2))
	assert.Equal(t, 256*time.Second, Backoff(8))
	// Exponent caps at 8, so the delay plateaus at 256s.
	assert.Equal(t, 256*time.Second, Backoff(9))
	assert.Equal(t, 256*time.Second, Backoff(100))
}
