package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockClock(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	assert.Equal(t, start, c.Now())
	c.Advance(2 * time.Second)
	assert.Equal(t, 2*time.Second, c.Since(start))

	c.Set(start)
	assert.Equal(t, time.Duration(0), c.Since(start))
}

func TestMockClock_AutoStep(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)
	c.AutoStep(time.Millisecond)

	first := c.Now()
	second := c.Now()
	assert.Equal(t, start, first)
	assert.Equal(t, start.Add(time.Millisecond), second)
	assert.Equal(t, 2*time.Millisecond, c.Since(start))
}

func TestRealClock(t *testing.T) {
	t.Parallel()

	var c Clock = RealClock{}
	before := c.Now()
	assert.GreaterOrEqual(t, c.Since(before), time.Duration(0))
}

func TestFormatRFC3339(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2025, 3, 1, 14, 30, 0, 0, loc)
	assert.Equal(t, "2025-03-01T12:30:00Z", FormatRFC3339(ts))
}
