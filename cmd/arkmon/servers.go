package main

import (
	"context"
	"fmt"
	"log"

	"github.com/function61/arkmon/pkg/asapi"
	"github.com/function61/gokit/logex"
	"github.com/function61/gokit/ossignal"
	"github.com/scylladb/termtables"
	"github.com/spf13/cobra"
)

func serversEntry() *cobra.Command {
	parentCmd := &cobra.Command{
		Use:   "servers",
		Short: "Query the official server list",
	}

	parentCmd.AddCommand(&cobra.Command{
		Use:   "find [query]",
		Short: "Search servers by name (case-insensitive, first 25)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			logger := logex.StandardLogger()

			exitIfError(serversFind(
				ossignal.InterruptOrTerminateBackgroundCtx(logger),
				args[0],
				logger))
		},
	})

	parentCmd.AddCommand(&cobra.Command{
		Use:   "top",
		Short: "Busiest server in a fresh snapshot",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			logger := logex.StandardLogger()

			exitIfError(serversTop(
				ossignal.InterruptOrTerminateBackgroundCtx(logger),
				logger))
		},
	})

	return parentCmd
}

func ratesEntry() *cobra.Command {
	return &cobra.Command{
		Use:   "rates",
		Short: "Current server rates (XP multiplier)",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			logger := logex.StandardLogger()

			exitIfError(rates(
				ossignal.InterruptOrTerminateBackgroundCtx(logger),
				logger))
		},
	}
}

func serversFind(ctx context.Context, query string, logger *log.Logger) error {
	records, err := freshSnapshot(ctx, logger)
	if err != nil {
		return err
	}

	view := termtables.CreateTable()
	view.AddHeaders("Name", "Players", "Map", "Address")

	for _, record := range asapi.FilterServers(query, records) {
		view.AddRow(
			record.Name,
			fmt.Sprintf("%d/%d", record.NumPlayers, record.MaxPlayers),
			record.MapName,
			record.IP+":"+record.Port)
	}

	fmt.Println(view.Render())

	return nil
}

func serversTop(ctx context.Context, logger *log.Logger) error {
	records, err := freshSnapshot(ctx, logger)
	if err != nil {
		return err
	}

	top := busiestRecord(records)
	if top == nil {
		fmt.Println("empty server list")
		return nil
	}

	fmt.Printf("%s: %d/%d players\n", top.Name, top.NumPlayers, top.MaxPlayers)

	return nil
}

func rates(ctx context.Context, logger *log.Logger) error {
	poller := asapi.NewRatePoller(asapi.DynamicConfigURL, logex.Prefix("rates", logger))

	if _, _, _, err := poller.Poll(ctx); err != nil {
		return err
	}

	fmt.Printf("%sx\n", poller.Current())

	return nil
}

// one-shot commands don't participate in serve's snapshot loop, so they fetch
// their own
func freshSnapshot(ctx context.Context, logger *log.Logger) ([]asapi.ServerRecord, error) {
	snapshots := asapi.NewSnapshotCache()

	fetcher := asapi.NewFetcher(asapi.OfficialServerListURL, snapshots, logex.Prefix("fetcher", logger))
	if err := fetcher.RefreshSnapshot(ctx); err != nil {
		return nil, err
	}

	return snapshots.Current(), nil
}

func busiestRecord(records []asapi.ServerRecord) *asapi.ServerRecord {
	var top *asapi.ServerRecord

	for i, record := range records {
		if top == nil || record.NumPlayers > top.NumPlayers {
			top = &records[i]
		}
	}

	return top
}
