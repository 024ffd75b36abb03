package assistant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDailyHints(t *testing.T) {
	hints := MustDefaultCatalog().Hints
	morning := time.Date(2026, 3, 14, 1, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)

	a := DailyHints(hints, morning, DefaultHintCount)
	assert.Len(t, a, DefaultHintCount)
	assert.Equal(t, a, DailyHints(hints, evening, DefaultHintCount))

	seen := map[string]bool{}
	for _, h := range a {
		assert.Contains(t, hints, h)
		assert.False(t, seen[h], "duplicate hint %q", h)
		seen[h] = true
	}
}

func TestDailyHints_VariesByDay(t *testing.T) {
	hints := MustDefaultCatalog().Hints
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	first := DailyHints(hints, start, DefaultHintCount)

	differs := false
	for d := 1; d <= 7; d++ {
		if !assert.ObjectsAreEqual(first, DailyHints(hints, start.AddDate(0, 0, d), DefaultHintCount)) {
			differs = true
			break
		}
	}
	assert.True(t, differs)
}

func TestDailyHints_Bounds(t *testing.T) {
	hints := []string{"a", "b"}
	now := time.Now()
	assert.Empty(t, DailyHints(hints, now, 0))
	assert.Empty(t, DailyHints(nil, now, 3))
	assert.ElementsMatch(t, hints, DailyHints(hints, now, 5))
}
