package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/function61/arkmon/pkg/registry"
	"github.com/function61/gokit/logex"
	"github.com/function61/gokit/ossignal"
	"github.com/scylladb/termtables"
	"github.com/spf13/cobra"
)

func monitorEntry() *cobra.Command {
	parentCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Manage monitored servers",
	}

	channelId := ""
	voiceChannelId := ""

	mk := &cobra.Command{
		Use:   "mk [key]",
		Short: "Start monitoring the first server whose name contains key",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			logger := logex.StandardLogger()

			exitIfError(monitorMk(
				ossignal.InterruptOrTerminateBackgroundCtx(logger),
				args[0],
				channelId,
				voiceChannelId,
				logger))
		},
	}
	mk.Flags().StringVarP(&channelId, "channel", "c", "", "Channel to publish the dashboard to")
	mk.Flags().StringVarP(&voiceChannelId, "voice", "", "", "Voice channel to rename with the population counter (optional)")
	mk.MarkFlagRequired("channel")

	parentCmd.AddCommand(mk)

	parentCmd.AddCommand(&cobra.Command{
		Use:   "rm [key]",
		Short: "Stop monitoring (substring match against registered keys)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			logger := logex.StandardLogger()

			exitIfError(monitorRm(
				ossignal.InterruptOrTerminateBackgroundCtx(logger),
				args[0],
				logger))
		},
	})

	parentCmd.AddCommand(&cobra.Command{
		Use:   "ls",
		Short: "List monitored servers",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			exitIfError(monitorLs(logex.StandardLogger()))
		},
	})

	return parentCmd
}

func monitorMk(ctx context.Context, key string, channelId string, voiceChannelId string, logger *log.Logger) error {
	app, err := getApp(logger)
	if err != nil {
		return err
	}
	defer app.Close()

	// fresh snapshot so the registration validates against current data, not
	// whatever serve last saw
	if err := app.fetcher.RefreshSnapshot(ctx); err != nil {
		return err
	}

	// best-effort: dashboard falls back to the default rate if this fails
	_, _, _, _ = app.rates.Poll(ctx)

	entry, err := app.registry.Start(ctx, key, channelId, voiceChannelId, time.Now())
	if err != nil {
		return err
	}

	fmt.Printf("monitoring %s (message %s)\n", entry.Key, entry.MessageId)

	return nil
}

func monitorRm(ctx context.Context, identifier string, logger *log.Logger) error {
	app, err := getApp(logger)
	if err != nil {
		return err
	}
	defer app.Close()

	if !app.registry.Stop(ctx, identifier) {
		return fmt.Errorf("no monitor matches: %s", identifier)
	}

	return nil
}

func monitorLs(logger *log.Logger) error {
	store := registry.NewStore(monitorsPath(), favoritesPath(), logex.Prefix("store", logger))
	store.Load()

	view := termtables.CreateTable()
	view.AddHeaders("Key", "Channel", "Companion", "Alert", "Created")

	for _, entry := range store.Monitors() {
		view.AddRow(
			entry.Key,
			entry.ChannelId,
			entry.VoiceChannelId,
			boolToCheckmark(entry.AlertActive),
			entry.Created.Format(time.RFC3339))
	}

	fmt.Println(view.Render())

	return nil
}
