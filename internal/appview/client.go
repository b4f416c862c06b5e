// Package appview implements the content-repository client: given a post URI
// it fetches current engagement counts and safety labels from a Bluesky
// appview instance.
package appview

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pscheid92/feedpulse/internal/domain"
)

const (
	getPostsPath   = "/xrpc/app.bsky.feed.getPosts"
	requestTimeout = 15 * time.Second
)

// Client talks to an appview over plain HTTP. All calls are bounded by the
// client timeout so a slow appview cannot starve a refresh cycle.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

type postsResponse struct {
	Posts []struct {
		URI         string `json:"uri"`
		LikeCount   int    `json:"likeCount"`
		RepostCount int    `json:"repostCount"`
		Labels      []struct {
			Val string `json:"val"`
		} `json:"labels"`
	} `json:"posts"`
}

// GetPostStats returns live engagement and labels for a post. A 400/404/410
// response, or a 200 with the post absent from the result, maps to
// domain.ErrContentGone; every other failure is transient.
func (c *Client) GetPostStats(ctx context.Context, postURI string) (*domain.PostStats, error) {
	endpoint := c.baseURL + getPostsPath + "?uris=" + url.QueryEscape(postURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building appview request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching post %s: %w", postURI, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest, http.StatusNotFound, http.StatusGone:
		return nil, fmt.Errorf("post %s: %w", postURI, domain.ErrContentGone)
	default:
		return nil, fmt.Errorf("appview returned status %d for %s", resp.StatusCode, postURI)
	}

	var body postsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding appview response: %w", err)
	}

	for _, post := range body.Posts {
		if post.URI != postURI {
			continue
		}
		stats := &domain.PostStats{
			Likes:   post.LikeCount,
			Reposts: post.RepostCount,
		}
		for _, label := range post.Labels {
			stats.Labels = append(stats.Labels, label.Val)
		}
		return stats, nil
	}

	// The appview omits posts it cannot resolve.
	return nil, fmt.Errorf("post %s: %w", postURI, domain.ErrContentGone)
}
