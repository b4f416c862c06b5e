package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_ZeroEngagementIsZero(t *testing.T) {
	assert.Zero(t, Score(0, 0, 0, 0))
	assert.Zero(t, Score(100, 0, 0, 0))
}

func TestScore_NonNegative(t *testing.T) {
	cases := []struct {
		age                 float64
		likes, reposts, mod int
	}{
		{0, 0, 0, -100},
		{1, 5, 3, -1000},
		{48, 1, 0, -2},
		{0.5, 10, 10, 50},
	}
	for _, c := range cases {
		assert.GreaterOrEqual(t, Score(c.age, c.likes, c.reposts, c.mod), 0.0)
	}
}

func TestScore_StrictlyDecreasingInAge(t *testing.T) {
	prev := Score(0, 100, 50, 0)
	for _, age := range []float64{0.5, 1, 2, 6, 12, 24, 48, 100} {
		cur := Score(age, 100, 50, 0)
		assert.Less(t, cur, prev, "score at age %v should be below previous", age)
		prev = cur
	}
}

func TestScore_IncreasingInEngagement(t *testing.T) {
	assert.Greater(t, Score(5, 20, 0, 0), Score(5, 10, 0, 0))
	assert.Greater(t, Score(5, 10, 10, 0), Score(5, 10, 5, 0))
}

func TestScore_ModEntersAdditively(t *testing.T) {
	// A boost of n is worth exactly n likes.
	assert.Equal(t, Score(3, 10, 0, 5), Score(3, 15, 0, 0))
	// A strong negative boost can dominate low engagement entirely.
	assert.Zero(t, Score(3, 2, 1, -50))
}

func TestScore_KnownValue(t *testing.T) {
	// 10 engagement at age 0: 10 / 2^2.8
	assert.InDelta(t, 1.4358, Score(0, 10, 0, 0), 0.001)
}
