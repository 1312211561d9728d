package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hn-digest/internal/digest"
	"hn-digest/internal/hackernews"
	"hn-digest/internal/model"
	"hn-digest/internal/render"
)

type fakeSource struct {
	ids    []int
	idsErr error
	items  map[int]hackernews.Item
}

func (s *fakeSource) StoryIDs(ctx context.Context, list string) ([]int, error) {
	if s.idsErr != nil {
		return nil, s.idsErr
	}
	return s.ids, nil
}

func (s *fakeSource) Item(ctx context.Context, id int) (hackernews.Item, error) {
	it, ok := s.items[id]
	if !ok {
		return hackernews.Item{}, fmt.Errorf("no item %d", id)
	}
	return it, nil
}

// freshSource serves n stories all posted a minute ago.
func freshSource(n int) *fakeSource {
	now := time.Now().Unix()
	s := &fakeSource{items: make(map[int]hackernews.Item)}
	for id := 1; id <= n; id++ {
		tm := now - 60
		score := id * 10
		s.ids = append(s.ids, id)
		s.items[id] = hackernews.Item{
			ID: id, Type: "story",
			Title: fmt.Sprintf("story %d", id),
			Time:  &tm, Score: &score,
		}
	}
	return s
}

func TestBuilderWritesDigestFile(t *testing.T) {
	dir := t.TempDir()
	w := &DigestBuilder{
		Source:    freshSource(3),
		Channel:   "frontpage",
		Config:    digest.Config{List: "topstories", Limit: 3, Hours: 24, Scan: 3, BatchSize: 3, MaxWorkers: 2},
		Format:    render.FormatJSON,
		OutputDir: dir,
	}
	channelDir := filepath.Join(dir, w.Channel)
	if err := os.MkdirAll(channelDir, 0o755); err != nil {
		t.Fatal(err)
	}

	w.runOnce(context.Background())

	entries, err := os.ReadDir(channelDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d files, want 1", len(entries))
	}
	name := entries[0].Name()
	if !strings.HasPrefix(name, "topstories-") || !strings.HasSuffix(name, ".json") {
		t.Errorf("file name = %q, want topstories-YYYYMMDD.json", name)
	}

	b, err := os.ReadFile(filepath.Join(channelDir, name))
	if err != nil {
		t.Fatal(err)
	}
	var d model.Digest
	if err := json.Unmarshal(b, &d); err != nil {
		t.Fatalf("digest file does not parse: %v", err)
	}
	if d.Count != 3 || len(d.Items) != 3 {
		t.Errorf("count = %d, items = %d, want 3/3", d.Count, len(d.Items))
	}
	if d.Items[0].Rank != 1 || d.Items[0].ID != 1 {
		t.Errorf("first item = id %d rank %d, want 1/1", d.Items[0].ID, d.Items[0].Rank)
	}
}

func TestBuilderSkipsTickOnRankingFailure(t *testing.T) {
	dir := t.TempDir()
	w := &DigestBuilder{
		Source:    &fakeSource{idsErr: errors.New("status 503")},
		Channel:   "frontpage",
		Config:    digest.Config{List: "topstories", Limit: 3, Hours: 24, Scan: 3, BatchSize: 3, MaxWorkers: 2},
		Format:    render.FormatJSON,
		OutputDir: dir,
	}
	channelDir := filepath.Join(dir, w.Channel)
	if err := os.MkdirAll(channelDir, 0o755); err != nil {
		t.Fatal(err)
	}

	w.runOnce(context.Background())

	entries, err := os.ReadDir(channelDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d files after a failed run, want none", len(entries))
	}
}

// shutdownSource cancels the builder's context on the first detail fetch,
// then fails every fetch the way a canceled HTTP request does.
type shutdownSource struct {
	*fakeSource
	cancel context.CancelFunc
}

func (s *shutdownSource) Item(ctx context.Context, id int) (hackernews.Item, error) {
	s.cancel()
	return hackernews.Item{}, ctx.Err()
}

func TestBuilderKeepsLastDigestOnCancelMidRun(t *testing.T) {
	dir := t.TempDir()
	src := freshSource(3)
	w := &DigestBuilder{
		Source:    src,
		Channel:   "frontpage",
		Config:    digest.Config{List: "topstories", Limit: 3, Hours: 24, Scan: 3, BatchSize: 3, MaxWorkers: 2},
		Format:    render.FormatJSON,
		OutputDir: dir,
	}
	channelDir := filepath.Join(dir, w.Channel)
	if err := os.MkdirAll(channelDir, 0o755); err != nil {
		t.Fatal(err)
	}

	w.runOnce(context.Background())

	entries, err := os.ReadDir(channelDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d files after the healthy run, want 1", len(entries))
	}
	name := entries[0].Name()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Source = &shutdownSource{fakeSource: src, cancel: cancel}
	w.runOnce(ctx)

	entries, err = os.ReadDir(channelDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d files after the canceled run, want the original 1", len(entries))
	}
	b, err := os.ReadFile(filepath.Join(channelDir, name))
	if err != nil {
		t.Fatal(err)
	}
	var d model.Digest
	if err := json.Unmarshal(b, &d); err != nil {
		t.Fatalf("digest file does not parse: %v", err)
	}
	if d.Count != 3 {
		t.Errorf("count = %d after the canceled run, want the healthy run's 3", d.Count)
	}
}

func TestBuilderStartStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	w := &DigestBuilder{
		Source:    freshSource(1),
		Channel:   "c",
		Config:    digest.Config{List: "topstories", Limit: 1, Hours: 24, Scan: 1, BatchSize: 1, MaxWorkers: 1},
		Format:    render.FormatText,
		Interval:  10 * time.Millisecond,
		OutputDir: dir,
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}

	entries, err := os.ReadDir(filepath.Join(dir, "c"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) == 0 {
		t.Error("no digest written by the immediate run")
	}
}

func TestBuilderFilename(t *testing.T) {
	w := &DigestBuilder{
		Config: digest.Config{List: "beststories"},
		Format: render.FormatMarkdown,
	}
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	if got := w.filename(now); got != "beststories-20240501.md" {
		t.Errorf("filename = %q, want beststories-20240501.md", got)
	}
}

type blockingWorker struct{ started chan struct{} }

func (b *blockingWorker) Start(ctx context.Context) error {
	close(b.started)
	<-ctx.Done()
	return nil
}

type failingWorker struct{}

func (failingWorker) Start(ctx context.Context) error {
	return errors.New("bad worker")
}

func TestManagerStopsWorkersOnCancel(t *testing.T) {
	b := &blockingWorker{started: make(chan struct{})}
	m := NewManager(b)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()

	<-b.started
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not stop after cancel")
	}
}

func TestManagerReportsWorkerError(t *testing.T) {
	m := NewManager(failingWorker{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("want worker error, got nil")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not stop after cancel")
	}
}
