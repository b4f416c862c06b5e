package feed

import "strings"

var spaceCollapser = strings.NewReplacer(
	"\n", " ",
	", ", " ",
	". ", " ",
	"! ", " ",
	"? ", " ",
)

// normalize lowercases text, folds newlines and sentence-terminal punctuation
// into spaces, collapses runs of spaces, and pads both ends so whole-word
// containment reduces to a substring test on " word ".
func normalize(text string) string {
	padded := spaceCollapser.Replace(" " + strings.ToLower(text) + " ")
	for strings.Contains(padded, "  ") {
		padded = strings.ReplaceAll(padded, "  ", " ")
	}
	return padded + " "
}

// Match classifies text against keyword sets and reports the first hit.
// Negative keywords are an absolute veto checked as plain substrings of the
// lowercased text, before any positive matching. Full keywords then match on
// word boundaries in the normalized text; partial keywords match anywhere in
// the lowercased text. First match wins, in caller-supplied order.
func Match(text string, full, partial, negative []string) (string, bool) {
	lower := strings.ToLower(text)

	for _, keyword := range negative {
		if keyword != "" && strings.Contains(lower, keyword) {
			return "", false
		}
	}

	padded := normalize(text)
	for _, keyword := range full {
		if keyword != "" && strings.Contains(padded, " "+keyword+" ") {
			return keyword, true
		}
	}
	for _, keyword := range partial {
		if keyword != "" && strings.Contains(lower, keyword) {
			return keyword, true
		}
	}
	return "", false
}

// FirstWord extracts the post's leading whitespace-delimited token with
// surrounding quotes stripped and lowercased. Used both as the leading-word
// gate and as the record's bucket key.
func FirstWord(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	word := strings.ReplaceAll(fields[0], `"`, "")
	word = strings.ReplaceAll(word, `'`, "")
	return strings.ToLower(word)
}

// ModBoost returns the moderation boost for text: the maximum weight among
// boosted-keyword triggers present as raw substrings. Boosts never stack; no
// trigger means zero.
func ModBoost(text string, boosts map[string]int) int {
	mod := 0
	found := false
	for trigger, weight := range boosts {
		if trigger == "" || !strings.Contains(text, trigger) {
			continue
		}
		if !found || weight > mod {
			mod = weight
		}
		found = true
	}
	return mod
}
