package cmd

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"time"

	"hn-digest/internal/digest"
	"hn-digest/internal/hackernews"
	"hn-digest/internal/render"

	"github.com/spf13/cobra"
)

var fetchFlags struct {
	list       string
	limit      int
	hours      int
	scan       int
	batchSize  int
	maxWorkers int
	itemType   string
	timeout    time.Duration
	retries    int
	format     string
	userAgent  string
	output     string
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch recent stories and print a digest",
	Long: "Fetches the ranked story list, scans a bounded prefix of it in " +
		"concurrent batches, keeps stories inside the recency window, and " +
		"prints them in rank order.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		f := cmd.Flags()

		// config supplies values, explicit flags override them
		runCfg := digest.Config{
			List:       cfg.Digest.List,
			Limit:      cfg.Digest.Limit,
			Hours:      cfg.Digest.Hours,
			Scan:       cfg.Digest.Scan,
			BatchSize:  cfg.Digest.BatchSize,
			MaxWorkers: cfg.Digest.MaxWorkers,
			Type:       cfg.Digest.Type,
		}
		if f.Changed("list") {
			runCfg.List = fetchFlags.list
		}
		if f.Changed("limit") {
			runCfg.Limit = fetchFlags.limit
		}
		if f.Changed("hours") {
			runCfg.Hours = fetchFlags.hours
		}
		if f.Changed("scan") {
			runCfg.Scan = fetchFlags.scan
		}
		if f.Changed("batch-size") {
			runCfg.BatchSize = fetchFlags.batchSize
		}
		if f.Changed("max-workers") {
			runCfg.MaxWorkers = fetchFlags.maxWorkers
		}
		if f.Changed("type") {
			runCfg.Type = fetchFlags.itemType
		}

		list, err := hackernews.NormalizeList(runCfg.List)
		if err != nil {
			return err
		}
		runCfg.List = list

		formatName := cfg.Digest.Format
		if f.Changed("format") {
			formatName = fetchFlags.format
		}
		format, err := render.ParseFormat(formatName)
		if err != nil {
			return err
		}

		timeout, err := time.ParseDuration(cfg.HN.Timeout)
		if err != nil {
			return fmt.Errorf("invalid hn.timeout %q: %w", cfg.HN.Timeout, err)
		}
		if f.Changed("timeout") {
			timeout = fetchFlags.timeout
		}
		retries := cfg.HN.Retries
		if f.Changed("retries") {
			retries = fetchFlags.retries
		}
		userAgent := cfg.HN.UserAgent
		if f.Changed("user-agent") {
			userAgent = fetchFlags.userAgent
		}

		client := hackernews.NewClient(cfg.HN.BaseAPI, hackernews.Options{
			Timeout:   timeout,
			Retries:   retries,
			UserAgent: userAgent,
		})

		now := time.Now()
		stories, stats, err := digest.Run(cmd.Context(), client, runCfg, now)
		if err != nil {
			return err
		}
		if len(stories) < runCfg.Limit {
			slog.Info("fetch: scan window exhausted before limit",
				"found", len(stories), "limit", runCfg.Limit, "scanned", stats.Scanned)
		}

		env := digest.Envelope(runCfg, stories, now)
		r := render.Renderer{Format: format}
		if fetchFlags.output != "" {
			var buf bytes.Buffer
			if err := r.Render(&buf, env); err != nil {
				return err
			}
			return os.WriteFile(fetchFlags.output, buf.Bytes(), 0o644)
		}
		return r.Render(cmd.OutOrStdout(), env)
	},
}

func init() {
	f := fetchCmd.Flags()
	f.StringVar(&fetchFlags.list, "list", digest.DefaultList, "story list: top, new, best, ask, show, job")
	f.IntVar(&fetchFlags.limit, "limit", digest.DefaultLimit, "max stories in the digest")
	f.IntVar(&fetchFlags.hours, "hours", digest.DefaultHours, "only include stories newer than this many hours")
	f.IntVar(&fetchFlags.scan, "scan", digest.DefaultScan, "how deep into the ranking to look")
	f.IntVar(&fetchFlags.batchSize, "batch-size", digest.DefaultBatchSize, "ids fetched per batch")
	f.IntVar(&fetchFlags.maxWorkers, "max-workers", digest.DefaultMaxWorkers, "concurrent fetches within a batch")
	f.StringVar(&fetchFlags.itemType, "type", digest.DefaultType, "accepted item type")
	f.DurationVar(&fetchFlags.timeout, "timeout", 10*time.Second, "per-request timeout")
	f.IntVar(&fetchFlags.retries, "retries", 2, "retry count for failed requests")
	f.StringVar(&fetchFlags.format, "format", "json", "output format: json, jsonl, text, markdown, yaml")
	f.StringVar(&fetchFlags.userAgent, "user-agent", "hn-digest/1.0", "User-Agent header for API requests")
	f.StringVar(&fetchFlags.output, "output", "", "write the digest to a file instead of stdout")
	rootCmd.AddCommand(fetchCmd)
}
