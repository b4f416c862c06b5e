package domain

// FeedConfig is the hot-reloadable definition of one feed algorithm. All
// keyword slices are stored lowercased; Words doubles as the bucket quota
// sequence for leading-word feeds (each occurrence of a word contributes one
// slot to the composed feed).
type FeedConfig struct {
	Shortname        string         `json:"shortname"`
	Keywords         []string       `json:"keywords"`
	PartialKeywords  []string       `json:"partialKeywords"`
	NegativeKeywords []string       `json:"negativeKeywords"`
	BoostedKeywords  map[string]int `json:"boostedKeywords"`
	Words            []string       `json:"words"`
	PinnedPosts      []string       `json:"pinnedPosts"`
	// RequireLeadingWord gates matches on the post's first token belonging to
	// Words and records that token as the bucket key.
	RequireLeadingWord bool `json:"requireLeadingWord"`
}

// Settings is one immutable snapshot of the external settings file. Components
// hold a ConfigSource and read the current snapshot per operation; they never
// cache field values across calls.
type Settings struct {
	Version                int          `json:"-"`
	SharedNegativeKeywords []string     `json:"sharedNegativeKeywords"`
	PublishMetrics         bool         `json:"publishMetrics"`
	Feeds                  []FeedConfig `json:"feeds"`
}

// Feed returns the config for a shortname, or nil.
func (s *Settings) Feed(shortname string) *FeedConfig {
	for i := range s.Feeds {
		if s.Feeds[i].Shortname == shortname {
			return &s.Feeds[i]
		}
	}
	return nil
}

// ConfigSource hands out the current settings snapshot. Implementations swap
// the snapshot atomically on reload, so a returned pointer stays coherent for
// the duration of one operation.
type ConfigSource interface {
	Current() *Settings
}
