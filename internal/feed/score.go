package feed

import "math"

// Hacker News style decay: score falls off as a power of age so engagement on
// fresh posts dominates the feed and old posts sink regardless of totals.
const (
	gravity   = 2.8
	ageOffset = 2.0
)

// Score ranks a post by engagement decayed over age. The moderation boost
// enters additively next to likes and reposts; the numerator is clamped at
// zero so a strongly negative boost bottoms out at score 0 rather than going
// negative. ageHours must be derived from the record's first-indexed time at
// the moment of the call.
func Score(ageHours float64, likes, reposts, mod int) float64 {
	engagement := float64(likes + reposts + mod)
	if engagement < 0 {
		engagement = 0
	}
	return engagement / math.Pow(ageHours+ageOffset, gravity)
}
