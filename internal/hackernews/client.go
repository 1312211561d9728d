package hackernews

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseAPI is the public Hacker News Firebase API endpoint.
const DefaultBaseAPI = "https://hacker-news.firebaseio.com/v0"

// itemPageBase is the canonical item page prefix on news.ycombinator.com.
const itemPageBase = "https://news.ycombinator.com/item?id="

// Client is a minimal Hacker News API client.
// Docs: https://github.com/HackerNews/API
type Client struct {
	baseAPI   string
	client    *http.Client
	retries   int
	userAgent string
}

// Options tunes per-request behavior. A zero Timeout means 10s, an empty
// UserAgent means hn-digest/1.0. Retries counts extra attempts after the
// first; zero means one shot.
type Options struct {
	Timeout   time.Duration
	Retries   int
	UserAgent string
}

// NewClient creates a new Hacker News client. baseAPI should be something
// like "https://hacker-news.firebaseio.com/v0". If empty, it defaults to
// the v0 endpoint.
func NewClient(baseAPI string, opts Options) *Client {
	if strings.TrimSpace(baseAPI) == "" {
		baseAPI = DefaultBaseAPI
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = "hn-digest/1.0"
	}
	return &Client{
		baseAPI:   strings.TrimRight(baseAPI, "/"),
		client:    &http.Client{Timeout: opts.Timeout},
		retries:   opts.Retries,
		userAgent: opts.UserAgent,
	}
}

// Item mirrors the HN item payload. The API omits fields it has no value
// for; pointer fields keep that distinction (nil = never sent), which the
// digest filter relies on for the missing-timestamp rule.
type Item struct {
	ID          int     `json:"id"`
	Type        string  `json:"type"` // story, job, ask, show, poll, etc.
	By          *string `json:"by"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Text        string  `json:"text"`
	Time        *int64  `json:"time"`
	Kids        []int   `json:"kids"`
	Descendants *int    `json:"descendants"`
	Score       *int    `json:"score"`
	Parts       []int   `json:"parts"` // polls
	Deleted     bool    `json:"deleted"`
	Dead        bool    `json:"dead"`
}

// ItemPageURL returns the canonical news.ycombinator.com page for an item.
// It doubles as the URL fallback for stories without an external link and
// as the comments link for every story.
func ItemPageURL(id int) string {
	return fmt.Sprintf("%s%d", itemPageBase, id)
}

// NormalizeList resolves a list name or its short alias to the API's list
// endpoint name (e.g. "top" -> "topstories").
func NormalizeList(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "top", "topstories":
		return "topstories", nil
	case "new", "newstories":
		return "newstories", nil
	case "best", "beststories":
		return "beststories", nil
	case "ask", "askstories":
		return "askstories", nil
	case "show", "showstories":
		return "showstories", nil
	case "job", "jobs", "jobstories":
		return "jobstories", nil
	default:
		return "", fmt.Errorf("hackernews: unknown story list %q", name)
	}
}

// StoryIDs loads a ranked list endpoint such as topstories/newstories/etc.
// The returned slice is ordered by rank, rank 1 first. A JSON null body is
// a malformed ranking, not an empty one, and surfaces as an error; an empty
// array is a valid empty ranking.
func (c *Client) StoryIDs(ctx context.Context, list string) ([]int, error) {
	path := fmt.Sprintf("%s/%s.json", c.baseAPI, url.PathEscape(list))
	var ids []int
	err := c.withRetry(ctx, func() error {
		ids = nil // fresh decode target per attempt
		return c.doJSON(ctx, path, &ids)
	})
	if err != nil {
		return nil, fmt.Errorf("hackernews: %s: %w", list, err)
	}
	if ids == nil {
		return nil, fmt.Errorf("hackernews: %s: null response", list)
	}
	return ids, nil
}

// Item fetches a single HN item by ID. The API answers unknown ids with a
// JSON null body; that surfaces as an error here, like any other failed
// fetch, so one bad id never affects its neighbors.
func (c *Client) Item(ctx context.Context, id int) (Item, error) {
	endpoint := fmt.Sprintf("%s/item/%d.json", c.baseAPI, id)
	var it *Item
	err := c.withRetry(ctx, func() error {
		it = nil
		return c.doJSON(ctx, endpoint, &it)
	})
	if err != nil {
		return Item{}, fmt.Errorf("hackernews: item %d: %w", id, err)
	}
	if it == nil {
		return Item{}, fmt.Errorf("hackernews: item %d: null response", id)
	}
	return *it, nil
}

// withRetry runs fn up to retries+1 times with exponential backoff between
// attempts. Transport errors, non-2xx statuses, and undecodable bodies all
// count as one failed attempt; ctx cancellation cuts the wait short.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff(attempt)):
			}
		}
		if err := fn(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("after %d attempts: %w", c.retries+1, lastErr)
}

func (c *Client) doJSON(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// retryBackoff doubles a 500ms base per attempt, capped so a misbehaving
// endpoint cannot stall a batch for long.
func retryBackoff(attempt int) time.Duration {
	backoff := 500 * time.Millisecond
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > 8*time.Second {
		backoff = 8 * time.Second
	}
	return backoff
}
