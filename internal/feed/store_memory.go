package feed

import (
	"context"
	"sort"
	"sync"

	"github.com/pscheid92/feedpulse/internal/domain"
)

// MemoryStore is the in-memory ScoreStore the package tests run against. It
// mirrors the SQL adapter's semantics, including insert-ignore conflicts and
// the score/recency ordering.
type MemoryStore struct {
	mu    sync.Mutex
	posts map[memKey]domain.ScoredPost
	subs  map[string]int64
}

type memKey struct {
	feed string
	uri  string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		posts: make(map[memKey]domain.ScoredPost),
		subs:  make(map[string]int64),
	}
}

func (s *MemoryStore) UpsertIgnoringConflict(_ context.Context, posts []domain.ScoredPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range posts {
		key := memKey{feed: p.Feed, uri: p.URI}
		if _, exists := s.posts[key]; exists {
			continue
		}
		s.posts[key] = p
	}
	return nil
}

func (s *MemoryStore) DeleteByURIs(_ context.Context, feed string, uris []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, uri := range uris {
		delete(s.posts, memKey{feed: feed, uri: uri})
	}
	return nil
}

func (s *MemoryStore) SelectDue(_ context.Context, feed string, nowMs int64, tiers []domain.RefreshTier) ([]domain.ScoredPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []domain.ScoredPost
	for key, p := range s.posts {
		if key.feed != feed {
			continue
		}
		for _, tier := range tiers {
			if p.FirstIndexed > nowMs-tier.MaxAge.Milliseconds() && p.LastScored < nowMs-tier.MinSinceScored.Milliseconds() {
				due = append(due, p)
				break
			}
		}
	}
	sortByRecency(due)
	return due, nil
}

func (s *MemoryStore) SelectTopByWord(_ context.Context, feed, word string, limit int) ([]domain.ScoredPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []domain.ScoredPost
	for key, p := range s.posts {
		if key.feed == feed && p.FirstWord == word {
			rows = append(rows, p)
		}
	}
	sortByScore(rows)
	return clip(rows, limit), nil
}

func (s *MemoryStore) SelectTop(_ context.Context, feed string, limit int) ([]domain.ScoredPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []domain.ScoredPost
	for key, p := range s.posts {
		if key.feed == feed {
			rows = append(rows, p)
		}
	}
	sortByScore(rows)
	return clip(rows, limit), nil
}

func (s *MemoryStore) UpdateScore(_ context.Context, feed, uri string, score float64, lastScoredMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memKey{feed: feed, uri: uri}
	p, exists := s.posts[key]
	if !exists {
		return nil
	}
	p.Score = score
	p.LastScored = lastScoredMs
	s.posts[key] = p
	return nil
}

func (s *MemoryStore) DeleteOlderThan(_ context.Context, feed string, cutoffMs int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for key, p := range s.posts {
		if key.feed == feed && p.FirstIndexed < cutoffMs {
			delete(s.posts, key)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryStore) GetCursor(_ context.Context, service string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cursor, ok := s.subs[service]
	return cursor, ok, nil
}

func (s *MemoryStore) SetCursor(_ context.Context, service string, cursor int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[service] = cursor
	return nil
}

// Get returns a record by feed and uri. Test helper, not part of ScoreStore.
func (s *MemoryStore) Get(feed, uri string) (domain.ScoredPost, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[memKey{feed: feed, uri: uri}]
	return p, ok
}

// Len reports how many records the store holds across all feeds.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.posts)
}

func sortByScore(rows []domain.ScoredPost) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].FirstIndexed > rows[j].FirstIndexed
	})
}

func sortByRecency(rows []domain.ScoredPost) {
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].FirstIndexed > rows[j].FirstIndexed
	})
}

func clip(rows []domain.ScoredPost, limit int) []domain.ScoredPost {
	if limit >= 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}
