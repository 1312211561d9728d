package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hn-digest/internal/config"
	"hn-digest/internal/digest"
	"hn-digest/internal/hackernews"
	"hn-digest/internal/publish"
	"hn-digest/internal/redisclient"
	"hn-digest/internal/render"
	"hn-digest/worker"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild digests on an interval",
	Long: "Runs one digest builder per configured channel. Each builder " +
		"regenerates its digest file on its interval and can publish the " +
		"result to a redis channel.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		timeout, err := time.ParseDuration(cfg.HN.Timeout)
		if err != nil {
			return fmt.Errorf("invalid hn.timeout %q: %w", cfg.HN.Timeout, err)
		}
		client := hackernews.NewClient(cfg.HN.BaseAPI, hackernews.Options{
			Timeout:   timeout,
			Retries:   cfg.HN.Retries,
			UserAgent: cfg.HN.UserAgent,
		})

		channels := cfg.Watch.Channels
		if len(channels) == 0 {
			// no channels configured: watch the digest section as one channel
			channels = []config.ChannelConfig{{
				Name:       "digest",
				List:       cfg.Digest.List,
				Limit:      cfg.Digest.Limit,
				Hours:      cfg.Digest.Hours,
				Scan:       cfg.Digest.Scan,
				BatchSize:  cfg.Digest.BatchSize,
				MaxWorkers: cfg.Digest.MaxWorkers,
				Type:       cfg.Digest.Type,
				Format:     cfg.Digest.Format,
				Interval:   cfg.Watch.Interval,
				OutputDir:  cfg.Watch.OutputDir,
			}}
		}

		// one shared publisher when any channel publishes
		var pub *publish.RedisPublisher
		for _, ch := range channels {
			if ch.Publish {
				rdb := redisclient.New(cfg.Redis)
				defer rdb.Close()
				pub = publish.NewRedisPublisher(rdb)
				break
			}
		}

		var ws []worker.Worker
		for _, ch := range channels {
			interval, err := time.ParseDuration(ch.Interval)
			if err != nil {
				return fmt.Errorf("invalid interval for channel %s: %w", ch.Name, err)
			}
			list, err := hackernews.NormalizeList(ch.List)
			if err != nil {
				return fmt.Errorf("channel %s: %w", ch.Name, err)
			}
			format, err := render.ParseFormat(ch.Format)
			if err != nil {
				return fmt.Errorf("channel %s: %w", ch.Name, err)
			}
			b := &worker.DigestBuilder{
				Source:  client,
				Channel: ch.Name,
				Config: digest.Config{
					List:       list,
					Limit:      ch.Limit,
					Hours:      ch.Hours,
					Scan:       ch.Scan,
					BatchSize:  ch.BatchSize,
					MaxWorkers: ch.MaxWorkers,
					Type:       ch.Type,
				},
				Format:    format,
				Title:     ch.Title,
				Interval:  interval,
				OutputDir: ch.OutputDir,
			}
			if ch.Publish && pub != nil {
				b.Publisher = pub
				b.PublishTo = fmt.Sprintf("%s:%s", cfg.Redis.Channel, ch.Name)
			}
			slog.Info("watch: starting digest builder",
				"channel", ch.Name, "list", list, "interval", interval.String())
			ws = append(ws, b)
		}

		mgr := worker.NewManager(ws...)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Signal handling for systemd
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			s := <-sigc
			log.Printf("received signal: %s, shutting down", s)
			cancel()
		}()

		return mgr.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
