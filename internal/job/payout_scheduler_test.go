package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextRunAtBeforeTwoAM(t *testing.T) {
	now := time.Date(2026, 3, 5, 1, 0, 0, 0, time.UTC)
	want := time.Date(2026, 3, 5, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, want, nextRunAt(now))
}

func TestNextRunAtAfterTwoAM(t *testing.T) {
	now := time.Date(2026, 3, 5, 3, 30, 0, 0, time.UTC)
	want := time.Date(2026, 3, 6, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, want, nextRunAt(now))
}

func TestNextRunAtExactlyTwoAM(t *testing.T) {
	now := time.Date(2026, 3, 5, 2, 0, 0, 0, time.UTC)
	want := time.Date(2026, 3, 6, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, want, nextRunAt(now))
}
