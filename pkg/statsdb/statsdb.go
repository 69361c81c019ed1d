// Historical player-count analytics on an embedded SQLite database.
package statsdb

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"math"
	"sort"
	"time"

	"github.com/function61/gokit/logex"
	_ "modernc.org/sqlite"
)

var ErrNoSamples = errors.New("no samples for the given server and window")

// matches SQLite's CURRENT_TIMESTAMP and sorts lexicographically, so windowed
// queries can compare timestamps as text
const timestampFormat = "2006-01-02 15:04:05"

const schema = `
CREATE TABLE IF NOT EXISTS server_stats (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	server_name TEXT,
	player_count INTEGER,
	max_players INTEGER,
	timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS server_stats_name_timestamp ON server_stats (server_name, timestamp);
`

type Engine struct {
	db   *sql.DB
	logl *logex.Leveled
}

func Open(path string, logger *log.Logger) (*Engine, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Engine{
		db:   db,
		logl: logex.Levels(logger),
	}, nil
}

func (e *Engine) Close() error {
	return e.db.Close()
}

// append-only; samples are never updated, only pruned by Prune()
func (e *Engine) RecordSample(ctx context.Context, serverName string, playerCount int, maxPlayers int, at time.Time) error {
	_, err := e.db.ExecContext(
		ctx,
		"INSERT INTO server_stats (server_name, player_count, max_players, timestamp) VALUES (?, ?, ?, ?)",
		serverName,
		playerCount,
		maxPlayers,
		at.UTC().Format(timestampFormat))
	return err
}

type WindowStats struct {
	Current     int
	Average     float64 // rounded to one decimal
	Peak        int
	Low         int
	SampleCount int
}

// aggregates over the trailing window. ErrNoSamples when nothing matches the
// window, even if older samples exist.
func (e *Engine) QueryWindow(ctx context.Context, serverName string, hours int, now time.Time) (*WindowStats, error) {
	cutoff := now.Add(-time.Duration(hours) * time.Hour)

	rows, err := e.db.QueryContext(
		ctx,
		"SELECT player_count FROM server_stats WHERE server_name = ? AND timestamp >= ? ORDER BY timestamp ASC",
		serverName,
		cutoff.UTC().Format(timestampFormat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := WindowStats{Low: math.MaxInt32}
	sum := 0

	for rows.Next() {
		playerCount := 0
		if err := rows.Scan(&playerCount); err != nil {
			return nil, err
		}

		stats.Current = playerCount // last row (ascending) wins
		stats.SampleCount++
		sum += playerCount

		if playerCount > stats.Peak {
			stats.Peak = playerCount
		}
		if playerCount < stats.Low {
			stats.Low = playerCount
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if stats.SampleCount == 0 {
		return nil, ErrNoSamples
	}

	stats.Average = roundToOneDecimal(float64(sum) / float64(stats.SampleCount))

	return &stats, nil
}

type HourAverage struct {
	Hour    int // 0-23 UTC
	Average float64
}

type PeakHours struct {
	PeakHour    int
	PeakAverage float64
	Top3        []HourAverage // descending by average
}

// buckets samples by UTC hour-of-day over the trailing N days. Peak ties are
// broken by the lowest hour number.
func (e *Engine) QueryPeakHours(ctx context.Context, serverName string, days int, now time.Time) (*PeakHours, error) {
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)

	rows, err := e.db.QueryContext(
		ctx,
		"SELECT player_count, timestamp FROM server_stats WHERE server_name = ? AND timestamp >= ?",
		serverName,
		cutoff.UTC().Format(timestampFormat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sums := [24]int{}
	counts := [24]int{}
	total := 0

	for rows.Next() {
		playerCount := 0
		// DATETIME decltype makes the driver hand this back as time.Time
		recordedAt := time.Time{}
		if err := rows.Scan(&playerCount, &recordedAt); err != nil {
			return nil, err
		}

		hour := recordedAt.UTC().Hour()
		sums[hour] += playerCount
		counts[hour]++
		total++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if total == 0 {
		return nil, ErrNoSamples
	}

	// ordered on the unrounded averages; rounding happens only on the way
	// out so that close-but-distinct buckets don't tie artificially
	averages := []HourAverage{}
	for hour := 0; hour < 24; hour++ {
		if counts[hour] == 0 {
			continue
		}

		averages = append(averages, HourAverage{
			Hour:    hour,
			Average: float64(sums[hour]) / float64(counts[hour]),
		})
	}

	// stable keeps the ascending-hour order within equal averages, which is
	// what breaks peak ties towards the lowest hour
	sort.SliceStable(averages, func(i, j int) bool { return averages[i].Average > averages[j].Average })

	top3 := averages
	if len(top3) > 3 {
		top3 = top3[:3]
	}

	for i := range top3 {
		top3[i].Average = roundToOneDecimal(top3[i].Average)
	}

	return &PeakHours{
		PeakHour:    top3[0].Hour,
		PeakAverage: top3[0].Average,
		Top3:        top3,
	}, nil
}

type TopEntry struct {
	ServerName  string
	PlayerCount int
	MaxPlayers  int
}

// most recent sample per tracked server, highest population first. nil when
// none of the names have samples.
func (e *Engine) TrackedTop(ctx context.Context, serverNames []string) (*TopEntry, error) {
	var top *TopEntry

	for _, name := range serverNames {
		row := e.db.QueryRowContext(
			ctx,
			"SELECT player_count, max_players FROM server_stats WHERE server_name = ? ORDER BY timestamp DESC, id DESC LIMIT 1",
			name)

		entry := TopEntry{ServerName: name}
		if err := row.Scan(&entry.PlayerCount, &entry.MaxPlayers); err != nil {
			if err == sql.ErrNoRows {
				continue
			}
			return nil, err
		}

		if top == nil || entry.PlayerCount > top.PlayerCount {
			entryCopy := entry
			top = &entryCopy
		}
	}

	return top, nil
}

// retention: deletes samples older than the given day count. Only ever run as
// an explicit administrative operation.
func (e *Engine) Prune(ctx context.Context, olderThanDays int, now time.Time) (int64, error) {
	cutoff := now.Add(-time.Duration(olderThanDays) * 24 * time.Hour)

	result, err := e.db.ExecContext(
		ctx,
		"DELETE FROM server_stats WHERE timestamp < ?",
		cutoff.UTC().Format(timestampFormat))
	if err != nil {
		return 0, err
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	e.logl.Info.Printf("Prune: deleted %d samples older than %d days", deleted, olderThanDays)

	return deleted, nil
}

func roundToOneDecimal(value float64) float64 {
	return math.Round(value*10) / 10
}
