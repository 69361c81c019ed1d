package main

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/function61/arkmon/pkg/registry"
	"github.com/function61/arkmon/pkg/statsdb"
	"github.com/function61/gokit/logex"
	"github.com/function61/gokit/ossignal"
	"github.com/scylladb/termtables"
	"github.com/spf13/cobra"
)

func statsEntry() *cobra.Command {
	parentCmd := &cobra.Command{
		Use:   "stats",
		Short: "Historical player-count analytics",
	}

	parentCmd.AddCommand(&cobra.Command{
		Use:   "window [name] [hours]",
		Short: "Aggregates over the trailing window",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			logger := logex.StandardLogger()

			hours, err := strconv.Atoi(args[1])
			exitIfError(err)

			exitIfError(statsWindow(
				ossignal.InterruptOrTerminateBackgroundCtx(logger),
				args[0],
				hours,
				logger))
		},
	})

	parentCmd.AddCommand(&cobra.Command{
		Use:   "peak [name] [days]",
		Short: "Busiest hours-of-day (UTC) over the trailing days",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			logger := logex.StandardLogger()

			days, err := strconv.Atoi(args[1])
			exitIfError(err)

			exitIfError(statsPeak(
				ossignal.InterruptOrTerminateBackgroundCtx(logger),
				args[0],
				days,
				logger))
		},
	})

	parentCmd.AddCommand(&cobra.Command{
		Use:   "prune [days]",
		Short: "Delete samples older than the given day count",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			logger := logex.StandardLogger()

			days, err := strconv.Atoi(args[0])
			exitIfError(err)

			exitIfError(statsPrune(
				ossignal.InterruptOrTerminateBackgroundCtx(logger),
				days,
				logger))
		},
	})

	parentCmd.AddCommand(&cobra.Command{
		Use:   "top",
		Short: "Busiest tracked server by most recent sample",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			logger := logex.StandardLogger()

			exitIfError(statsTop(
				ossignal.InterruptOrTerminateBackgroundCtx(logger),
				logger))
		},
	})

	return parentCmd
}

func statsWindow(ctx context.Context, serverName string, hours int, logger *log.Logger) error {
	engine, err := statsdb.Open(statsDbPath(), logex.Prefix("statsdb", logger))
	if err != nil {
		return err
	}
	defer engine.Close()

	stats, err := engine.QueryWindow(ctx, serverName, hours, time.Now())
	if err != nil {
		return err
	}

	view := termtables.CreateTable()
	view.AddHeaders("Current", "Average", "Peak", "Low", "Samples")
	view.AddRow(
		stats.Current,
		stats.Average,
		stats.Peak,
		stats.Low,
		stats.SampleCount)

	fmt.Println(view.Render())

	return nil
}

func statsPeak(ctx context.Context, serverName string, days int, logger *log.Logger) error {
	engine, err := statsdb.Open(statsDbPath(), logex.Prefix("statsdb", logger))
	if err != nil {
		return err
	}
	defer engine.Close()

	peak, err := engine.QueryPeakHours(ctx, serverName, days, time.Now())
	if err != nil {
		return err
	}

	view := termtables.CreateTable()
	view.AddHeaders("Hour (UTC)", "Average players")

	for _, hour := range peak.Top3 {
		view.AddRow(fmt.Sprintf("%02d:00", hour.Hour), hour.Average)
	}

	fmt.Println(view.Render())

	return nil
}

func statsPrune(ctx context.Context, days int, logger *log.Logger) error {
	engine, err := statsdb.Open(statsDbPath(), logex.Prefix("statsdb", logger))
	if err != nil {
		return err
	}
	defer engine.Close()

	deleted, err := engine.Prune(ctx, days, time.Now())
	if err != nil {
		return err
	}

	fmt.Printf("deleted %d samples\n", deleted)

	return nil
}

func statsTop(ctx context.Context, logger *log.Logger) error {
	store := registry.NewStore(monitorsPath(), favoritesPath(), logex.Prefix("store", logger))
	store.Load()

	engine, err := statsdb.Open(statsDbPath(), logex.Prefix("statsdb", logger))
	if err != nil {
		return err
	}
	defer engine.Close()

	names := []string{}
	for _, entry := range store.Monitors() {
		names = append(names, entry.Key)
	}

	top, err := engine.TrackedTop(ctx, names)
	if err != nil {
		return err
	}
	if top == nil {
		fmt.Println("no samples for any tracked server")
		return nil
	}

	fmt.Printf("%s: %d/%d players\n", top.ServerName, top.PlayerCount, top.MaxPlayers)

	return nil
}
