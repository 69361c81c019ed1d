package main

import (
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/function61/arkmon/pkg/asapi"
	"github.com/function61/arkmon/pkg/dashboard"
	"github.com/function61/arkmon/pkg/registry"
	"github.com/function61/arkmon/pkg/statsdb"
	"github.com/function61/gokit/envvar"
	"github.com/function61/gokit/logex"
)

// everything wired together. only commands that reach the chat platform
// (serve, monitor mk/rm) need this - the rest of the commands construct just
// the piece they read.
type app struct {
	snapshots *asapi.SnapshotCache
	fetcher   *asapi.Fetcher
	rates     *asapi.RatePoller
	store     *registry.Store
	stats     *statsdb.Engine
	sink      *dashboard.DiscordSink
	registry  *registry.Registry
}

func getApp(logger *log.Logger) (*app, error) {
	// no chat platform access = no reason to even start
	botToken, err := envvar.Required("DISCORD_BOT_TOKEN")
	if err != nil {
		return nil, err
	}

	alertThreshold, err := getAlertThreshold()
	if err != nil {
		return nil, err
	}

	snapshots := asapi.NewSnapshotCache()

	store := registry.NewStore(monitorsPath(), favoritesPath(), logex.Prefix("store", logger))
	store.Load()

	stats, err := statsdb.Open(statsDbPath(), logex.Prefix("statsdb", logger))
	if err != nil {
		return nil, err
	}

	rates := asapi.NewRatePoller(asapi.DynamicConfigURL, logex.Prefix("rates", logger))

	sink := dashboard.NewDiscordSink(botToken, logex.Prefix("discord", logger))

	return &app{
		snapshots: snapshots,
		fetcher:   asapi.NewFetcher(asapi.OfficialServerListURL, snapshots, logex.Prefix("fetcher", logger)),
		rates:     rates,
		store:     store,
		stats:     stats,
		sink:      sink,
		registry: registry.New(
			snapshots,
			rates,
			store,
			stats,
			sink,
			alertThreshold,
			logex.Prefix("registry", logger)),
	}, nil
}

func (a *app) Close() error {
	return a.stats.Close()
}

func dataDir() string {
	if dir := os.Getenv("ARKMON_DATA_DIR"); dir != "" {
		return dir
	}

	return "."
}

func monitorsPath() string {
	return filepath.Join(dataDir(), "monitors.json")
}

func favoritesPath() string {
	return filepath.Join(dataDir(), "favorites.json")
}

func statsDbPath() string {
	return filepath.Join(dataDir(), "server_stats.db")
}

func getAlertThreshold() (int, error) {
	fromEnvStr := os.Getenv("ARKMON_ALERT_THRESHOLD")
	if fromEnvStr == "" {
		return 0, nil // alerts disabled
	}

	return strconv.Atoi(fromEnvStr)
}
