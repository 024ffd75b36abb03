package assistant

import (
	"math/rand/v2"
	"time"
)

// Hint count bounds for DailyHints.
const (
	DefaultHintCount = 3
	MaxHintCount     = 10
)

// DailyHints picks count hints for the UTC day of now. The same day always
// yields the same hints in the same order.
func DailyHints(hints []string, now time.Time, count int) []string {
	if count <= 0 || len(hints) == 0 {
		return []string{}
	}
	if count > len(hints) {
		count = len(hints)
	}
	y, m, d := now.UTC().Date()
	seed := uint64(y)*10000 + uint64(m)*100 + uint64(d)
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	out := make([]string, 0, count)
	for _, i := range r.Perm(len(hints))[:count] {
		out = append(out, hints[i])
	}
	return out
}
