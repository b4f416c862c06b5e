package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch_FullWordBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		keyword string
		want    bool
	}{
		{"plain word", "working on my osdev project", "osdev", true},
		{"word at start", "osdev is fun", "osdev", true},
		{"word at end", "check out my osdev", "osdev", true},
		{"followed by period and space", "i love osdev. it rules", "osdev", true},
		{"followed by comma and space", "osdev, my favorite", "osdev", true},
		{"followed by bang and space", "osdev! yes", "osdev", true},
		{"followed by question and space", "osdev? yes", "osdev", true},
		{"newline boundary", "first line\nosdev here", "osdev", true},
		{"substring does not count", "crossdevelopment tools", "osdev", false},
		{"prefix does not count", "osdevelopment", "osdev", false},
		{"case insensitive", "OSDev Weekly", "osdev", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Match(tt.text, []string{tt.keyword}, nil, nil)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestMatch_PartialMatchesAnywhere(t *testing.T) {
	keyword, ok := Match("crossdevelopment tools", nil, []string{"ssdev"}, nil)
	assert.True(t, ok)
	assert.Equal(t, "ssdev", keyword)
}

func TestMatch_NegativeIsAbsoluteVeto(t *testing.T) {
	// The negative hits as a plain substring even though the full keyword
	// would match on a word boundary.
	tests := []string{
		"great osdev content about crypto",
		"osdev CRYPTOcurrency news",
		"cryptographic osdev work",
	}
	for _, text := range tests {
		_, ok := Match(text, []string{"osdev"}, []string{"osdev"}, []string{"crypto"})
		assert.False(t, ok, "text %q should be vetoed", text)
	}
}

func TestMatch_FirstMatchWins(t *testing.T) {
	keyword, ok := Match("gamedev and osdev", []string{"gamedev", "osdev"}, nil, nil)
	assert.True(t, ok)
	assert.Equal(t, "gamedev", keyword)

	// Full-word keywords take precedence over partials in scan order.
	keyword, ok = Match("gamedev and osdev", []string{"osdev"}, []string{"gamedev"}, nil)
	assert.True(t, ok)
	assert.Equal(t, "osdev", keyword)
}

func TestMatch_EmptyInputs(t *testing.T) {
	_, ok := Match("", []string{"osdev"}, []string{"osdev"}, nil)
	assert.False(t, ok)

	_, ok = Match("some text", nil, nil, nil)
	assert.False(t, ok)

	_, ok = Match("some text", []string{}, []string{}, []string{})
	assert.False(t, ok)
}

func TestMatch_CollapsesWhitespaceRuns(t *testing.T) {
	_, ok := Match("lots   of    spaces   osdev   here", []string{"osdev"}, nil, nil)
	assert.True(t, ok)
}

func TestFirstWord(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Hello world", "hello"},
		{`"Quoted" start`, "quoted"},
		{"'single' quotes", "single"},
		{"  leading spaces", "leading"},
		{"\nNewline first", "newline"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FirstWord(tt.text))
	}
}

func TestModBoost_TakesMaximumNeverStacks(t *testing.T) {
	boosts := map[string]int{"alpha": 5, "beta": 12, "gamma": -20}

	assert.Equal(t, 12, ModBoost("alpha and beta together", boosts))
	assert.Equal(t, 5, ModBoost("just alpha", boosts))
	assert.Equal(t, -20, ModBoost("only gamma", boosts))
	// A negative boost loses to a positive one; max, not sum.
	assert.Equal(t, 5, ModBoost("alpha with gamma", boosts))
	assert.Equal(t, 0, ModBoost("nothing relevant", boosts))
	assert.Equal(t, 0, ModBoost("anything", nil))
}

func TestModBoost_RawTextMatching(t *testing.T) {
	// Triggers match the raw text, so casing matters here unlike the matcher.
	boosts := map[string]int{"alpha": 5}
	assert.Equal(t, 0, ModBoost("ALPHA", boosts))
	assert.Equal(t, 5, ModBoost("midalphaword", boosts))
}
