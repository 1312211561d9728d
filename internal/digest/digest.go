package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"hn-digest/internal/hackernews"
	"hn-digest/internal/model"
)

// ErrSourceUnavailable marks a failed ranking fetch. Without the ranking
// there is nothing to scan, so Run aborts and returns no partial output.
var ErrSourceUnavailable = errors.New("story list unavailable")

// Source supplies the ranked id list and per-item details.
// *hackernews.Client satisfies it; tests substitute stubs.
type Source interface {
	StoryIDs(ctx context.Context, list string) ([]int, error)
	Item(ctx context.Context, id int) (hackernews.Item, error)
}

// Defaults for a run. The fetch command and the watch channels expose the
// same values as flag/config defaults.
const (
	DefaultList       = "topstories"
	DefaultLimit      = 25
	DefaultHours      = 24
	DefaultScan       = 200
	DefaultBatchSize  = 25
	DefaultMaxWorkers = 10
	DefaultType       = "story"
)

// Config controls a single run. It is plain data threaded through the
// pipeline explicitly; Run never mutates the caller's copy.
type Config struct {
	List       string // ranked list name, e.g. "topstories"
	Limit      int    // max stories in the digest
	Hours      int    // recency window in hours
	Scan       int    // how deep into the ranking to look
	BatchSize  int    // ids fetched per batch
	MaxWorkers int    // concurrent fetches within a batch
	Type       string // accepted item type
}

// normalized clamps unusable values instead of failing the run: blank or
// non-positive knobs fall back to the defaults, a batch never exceeds the
// scan window, and the worker count never exceeds the batch.
func (c Config) normalized() Config {
	if strings.TrimSpace(c.List) == "" {
		c.List = DefaultList
	}
	if strings.TrimSpace(c.Type) == "" {
		c.Type = DefaultType
	}
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}
	if c.Hours <= 0 {
		c.Hours = DefaultHours
	}
	if c.Scan <= 0 {
		c.Scan = DefaultScan
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchSize > c.Scan {
		c.BatchSize = c.Scan
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = DefaultMaxWorkers
	}
	if c.MaxWorkers > c.BatchSize {
		c.MaxWorkers = c.BatchSize
	}
	return c
}

// Stats counts what a run did. The counters exist for logging; they carry
// no output semantics.
type Stats struct {
	Scanned int // ids selected from the ranking
	Fetched int // detail fetches that succeeded
	Failed  int // detail fetches that errored
	Matched int // stories that passed the filter and were collected
}

// Run executes one scan-fetch-filter pass: load the ranking, walk the
// first Scan ids in batches of BatchSize with at most MaxWorkers
// concurrent fetches, keep items no older than Hours, and collect up to
// Limit stories in rank order.
//
// A ranking failure wraps ErrSourceUnavailable and is fatal. A failed item
// fetch only drops that id. Exhausting the window with fewer than Limit
// stories is a normal, partial result. Cancellation is honored between
// batches: the run returns ctx.Err() before issuing the next batch and
// never returns a partial digest for an aborted run.
func Run(ctx context.Context, src Source, cfg Config, now time.Time) ([]model.Story, Stats, error) {
	cfg = cfg.normalized()
	var stats Stats

	ids, err := src.StoryIDs(ctx, cfg.List)
	if err != nil {
		return nil, stats, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, cfg.List, err)
	}
	if len(ids) > cfg.Scan {
		ids = ids[:cfg.Scan]
	}
	stats.Scanned = len(ids)
	cutoff := now.Unix() - int64(cfg.Hours)*3600

	slog.Info("digest: scanning ranking", "list", cfg.List, "window", len(ids), "limit", cfg.Limit)

	stories := make([]model.Story, 0, cfg.Limit)
out:
	for start := 0; start < len(ids); start += cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		end := start + cfg.BatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := fetchBatch(ctx, src, cfg.MaxWorkers, ids[start:end])
		// Walk the batch in slot order so ranks stay ascending no matter
		// which fetch finished first.
		for i, r := range batch {
			rank := start + i + 1
			if r.err != nil {
				stats.Failed++
				slog.Warn("digest: item fetch failed", "id", ids[start+i], "rank", rank, "error", r.err)
				continue
			}
			stats.Fetched++
			if !qualifies(r.item, cutoff, cfg.Type) {
				continue
			}
			stats.Matched++
			stories = append(stories, newStory(r.item, rank))
			if len(stories) >= cfg.Limit {
				// Anything left of this batch is discarded and no
				// further batch is issued.
				break out
			}
		}
	}

	slog.Info("digest: scan complete",
		"scanned", stats.Scanned, "fetched", stats.Fetched,
		"failed", stats.Failed, "matched", stats.Matched)
	return stories, stats, nil
}

// Envelope wraps a finished run's stories in the output envelope the
// renderers consume.
func Envelope(cfg Config, stories []model.Story, now time.Time) model.Digest {
	cfg = cfg.normalized()
	if stories == nil {
		stories = []model.Story{}
	}
	return model.Digest{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		List:        cfg.List,
		Limit:       cfg.Limit,
		Hours:       cfg.Hours,
		Count:       len(stories),
		Items:       stories,
	}
}

type fetchResult struct {
	item hackernews.Item
	err  error
}

// fetchBatch resolves one batch of ids with at most workers concurrent
// fetches. Results come back in id order: every goroutine owns exactly one
// slot, and the WaitGroup barrier makes the slice safe to read afterwards.
func fetchBatch(ctx context.Context, src Source, workers int, ids []int) []fetchResult {
	results := make([]fetchResult, len(ids))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, id := range ids {
		i, id := i, id
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			it, err := src.Item(ctx, id)
			results[i] = fetchResult{item: it, err: err}
		}()
	}
	wg.Wait()
	return results
}

// qualifies reports whether an item belongs in the digest: the accepted
// type, not deleted or dead, and no older than cutoff (epoch seconds).
// Items without a timestamp never qualify.
func qualifies(it hackernews.Item, cutoff int64, typ string) bool {
	if it.Deleted || it.Dead {
		return false
	}
	if it.Type != typ {
		return false
	}
	if it.Time == nil {
		return false
	}
	return *it.Time >= cutoff
}

// newStory shapes one fetched item into its output record. The external
// url falls back to the HN item page when the item carries none.
func newStory(it hackernews.Item, rank int) model.Story {
	page := hackernews.ItemPageURL(it.ID)
	u := strings.TrimSpace(it.URL)
	if u == "" {
		u = page
	}
	s := model.Story{
		ID:          it.ID,
		Rank:        rank,
		Title:       it.Title,
		URL:         u,
		HNURL:       page,
		CommentsURL: page,
		Score:       it.Score,
		By:          it.By,
		Descendants: it.Descendants,
		KidsCount:   len(it.Kids),
		Type:        it.Type,
	}
	if it.Time != nil {
		s.Time = *it.Time
		s.TimeISO = time.Unix(*it.Time, 0).UTC().Format(time.RFC3339)
	}
	return s
}
