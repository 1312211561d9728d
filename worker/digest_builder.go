package worker

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"hn-digest/internal/digest"
	"hn-digest/internal/publish"
	"hn-digest/internal/render"
)

// DigestBuilder regenerates one channel's digest file on an interval and
// optionally publishes each finished digest to a redis channel.
type DigestBuilder struct {
	Source    digest.Source
	Channel   string // channel name, also the output subdirectory
	Config    digest.Config
	Format    render.Format
	Title     string        // markdown title; {.CurrentDate} expands
	Interval  time.Duration // how often to rebuild
	OutputDir string
	Publisher *publish.RedisPublisher // optional
	PublishTo string                  // redis channel key when Publisher is set
}

func (w *DigestBuilder) Start(ctx context.Context) error {
	if w.Interval <= 0 {
		w.Interval = 30 * time.Minute
	}
	// ensure base/channel directory exists
	channelDir := filepath.Join(w.OutputDir, w.Channel)
	if err := os.MkdirAll(channelDir, 0o755); err != nil {
		return err
	}
	// run immediately then on interval
	w.runOnce(ctx)

	t := time.NewTicker(w.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			w.runOnce(ctx)
		}
	}
}

// runOnce builds and writes one digest. Failures are logged and swallowed;
// the next tick gets a fresh chance.
func (w *DigestBuilder) runOnce(ctx context.Context) {
	now := time.Now().UTC()
	stories, stats, err := digest.Run(ctx, w.Source, w.Config, now)
	if err != nil {
		log.Printf("builder %s: digest run err=%v", w.Channel, err)
		return
	}
	// A run cut short by shutdown is truncated, not a digest.
	if ctx.Err() != nil {
		log.Printf("builder %s: canceled mid-run, keeping previous digest", w.Channel)
		return
	}

	d := digest.Envelope(w.Config, stories, now)
	var buf bytes.Buffer
	r := render.Renderer{Format: w.Format, Title: render.ExpandVars(w.Title, now)}
	if err := r.Render(&buf, d); err != nil {
		log.Printf("builder %s: render err=%v", w.Channel, err)
		return
	}

	path := filepath.Join(w.OutputDir, w.Channel, w.filename(now))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		log.Printf("builder %s: write file err=%v", w.Channel, err)
		return
	}
	log.Printf("builder %s: wrote %s with %d stories (scanned %d, failed %d)",
		w.Channel, path, len(stories), stats.Scanned, stats.Failed)

	if w.Publisher != nil && w.PublishTo != "" {
		ctxPub, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := w.Publisher.PublishDigest(ctxPub, w.PublishTo, d); err != nil {
			log.Printf("builder %s: publish err=%v", w.Channel, err)
		} else {
			log.Printf("builder %s: published to %s", w.Channel, w.PublishTo)
		}
	}
}

// filename is always "<list>-YYYYMMDD<ext>" so reruns within a day
// overwrite in place.
func (w *DigestBuilder) filename(now time.Time) string {
	return fmt.Sprintf("%s-%s%s", w.Config.List, now.Format("20060102"), w.Format.Ext())
}
