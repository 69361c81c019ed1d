package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/function61/gokit/logex"
	"github.com/function61/gokit/ossignal"
	"github.com/function61/gokit/taskrunner"
	"github.com/spf13/cobra"
)

const (
	snapshotSyncInterval = 60 * time.Second
	reconcileInterval    = 60 * time.Second
	ratePollInterval     = 15 * time.Minute
)

func serveEntry() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the monitor loops (snapshot sync, reconcile, rate poll)",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			logger := logex.StandardLogger()

			exitIfError(serve(
				ossignal.InterruptOrTerminateBackgroundCtx(logger),
				logger))
		},
	}
}

func serve(ctx context.Context, logger *log.Logger) error {
	app, err := getApp(logger)
	if err != nil {
		return err
	}
	defer app.Close()

	logl := logex.Levels(logger)
	logl.Info.Printf("%d monitor(s) restored", len(app.store.Monitors()))

	announceChannelId := os.Getenv("ARKMON_ANNOUNCE_CHANNEL")

	tasks := taskrunner.New(ctx, logger)

	tasks.Start("snapshot-sync", periodicTask(snapshotSyncInterval, func(ctx context.Context) {
		// failures already logged; the stale snapshot stays in use and the
		// next tick is the retry
		_ = app.fetcher.RefreshSnapshot(ctx)
	}))

	tasks.Start("reconcile", periodicTask(reconcileInterval, func(ctx context.Context) {
		app.registry.Reconcile(ctx, time.Now())
	}))

	tasks.Start("rate-poll", periodicTask(ratePollInterval, func(ctx context.Context) {
		changed, previous, current, err := app.rates.Poll(ctx)
		if err != nil || !changed || announceChannelId == "" {
			return
		}

		if err := app.sink.Notify(ctx, announceChannelId, fmt.Sprintf(
			"Server rates changed: %sx -> %sx",
			previous,
			current)); err != nil {
			logl.Error.Printf("rate change notify: %v", err)
		}
	}))

	return tasks.Wait()
}

// runs body once right away (so a restart doesn't wait a full interval for
// data), then on every tick until the context is cancelled
func periodicTask(interval time.Duration, body func(ctx context.Context)) func(ctx context.Context, _ string) error {
	return func(ctx context.Context, _ string) error {
		body(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				body(ctx)
			}
		}
	}
}
