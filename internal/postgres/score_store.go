package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/feedpulse/internal/domain"
)

// ScoreStore is the PostgreSQL-backed domain.ScoreStore.
type ScoreStore struct {
	pool *pgxpool.Pool
}

func NewScoreStore(pool *pgxpool.Pool) *ScoreStore {
	return &ScoreStore{pool: pool}
}

func (s *ScoreStore) UpsertIgnoringConflict(ctx context.Context, posts []domain.ScoredPost) error {
	if len(posts) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, p := range posts {
		batch.Queue(`
			INSERT INTO posts (feed, uri, cid, first_indexed, last_scored, score, mod, first_word)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (feed, uri) DO NOTHING
		`, p.Feed, p.URI, p.CID, p.FirstIndexed, p.LastScored, p.Score, p.Mod, p.FirstWord)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	for range posts {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert posts: %w", err)
		}
	}
	return nil
}

func (s *ScoreStore) DeleteByURIs(ctx context.Context, feed string, uris []string) error {
	if len(uris) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM posts WHERE feed = $1 AND uri = ANY($2)`, feed, uris)
	if err != nil {
		return fmt.Errorf("failed to delete posts: %w", err)
	}
	return nil
}

// SelectDue combines the refresh tiers with OR: a row qualifies when it is
// younger than a tier's age bound and stale past that tier's interval.
func (s *ScoreStore) SelectDue(ctx context.Context, feed string, nowMs int64, tiers []domain.RefreshTier) ([]domain.ScoredPost, error) {
	if len(tiers) == 0 {
		return nil, nil
	}

	var (
		clauses []string
		args    = []any{feed}
	)
	for _, tier := range tiers {
		clauses = append(clauses, fmt.Sprintf("(first_indexed > $%d AND last_scored < $%d)", len(args)+1, len(args)+2))
		args = append(args, nowMs-tier.MaxAge.Milliseconds(), nowMs-tier.MinSinceScored.Milliseconds())
	}

	query := `
		SELECT feed, uri, cid, first_indexed, last_scored, score, mod, first_word
		FROM posts
		WHERE feed = $1 AND (` + strings.Join(clauses, " OR ") + `)
		ORDER BY first_indexed DESC
	`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select due posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

func (s *ScoreStore) SelectTopByWord(ctx context.Context, feed, word string, limit int) ([]domain.ScoredPost, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT feed, uri, cid, first_indexed, last_scored, score, mod, first_word
		FROM posts
		WHERE feed = $1 AND first_word = $2
		ORDER BY score DESC, first_indexed DESC
		LIMIT $3
	`, feed, word, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select posts for word %q: %w", word, err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

func (s *ScoreStore) SelectTop(ctx context.Context, feed string, limit int) ([]domain.ScoredPost, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT feed, uri, cid, first_indexed, last_scored, score, mod, first_word
		FROM posts
		WHERE feed = $1
		ORDER BY score DESC, first_indexed DESC
		LIMIT $2
	`, feed, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select top posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

func (s *ScoreStore) UpdateScore(ctx context.Context, feed, uri string, score float64, lastScoredMs int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE posts SET score = $3, last_scored = $4 WHERE feed = $1 AND uri = $2
	`, feed, uri, score, lastScoredMs)
	if err != nil {
		return fmt.Errorf("failed to update score: %w", err)
	}
	return nil
}

func (s *ScoreStore) DeleteOlderThan(ctx context.Context, feed string, cutoffMs int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM posts WHERE feed = $1 AND first_indexed < $2`, feed, cutoffMs)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale posts: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *ScoreStore) GetCursor(ctx context.Context, service string) (int64, bool, error) {
	var cursor int64
	err := s.pool.QueryRow(ctx, `SELECT cursor FROM sub_state WHERE service = $1`, service).Scan(&cursor)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get cursor: %w", err)
	}
	return cursor, true, nil
}

func (s *ScoreStore) SetCursor(ctx context.Context, service string, cursor int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sub_state (service, cursor) VALUES ($1, $2)
		ON CONFLICT (service) DO UPDATE SET cursor = EXCLUDED.cursor
	`, service, cursor)
	if err != nil {
		return fmt.Errorf("failed to set cursor: %w", err)
	}
	return nil
}

func scanPosts(rows pgx.Rows) ([]domain.ScoredPost, error) {
	var posts []domain.ScoredPost
	for rows.Next() {
		var p domain.ScoredPost
		if err := rows.Scan(&p.Feed, &p.URI, &p.CID, &p.FirstIndexed, &p.LastScored, &p.Score, &p.Mod, &p.FirstWord); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read posts: %w", err)
	}
	return posts, nil
}
