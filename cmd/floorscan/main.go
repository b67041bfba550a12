// cmd/floorscan/main.go
//
// This is the entry point for a floorscan station.
// When you run `floorscan` from the station's working directory, this is
// what executes.
//
// Flow:
// 1. Seed the .floorscan folder (config.yaml + logs) if it is missing
// 2. Load station yaml + environment secrets
// 3. Connect the job store and the configured scan source
// 4. Launch the TUI

package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/redis/go-redis/v9"

	"github.com/tojem/floorscan/internal/config"
	"github.com/tojem/floorscan/internal/logbook"
	"github.com/tojem/floorscan/internal/scan"
	"github.com/tojem/floorscan/internal/store"
	"github.com/tojem/floorscan/internal/tui"
	"github.com/tojem/floorscan/internal/wakelock"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "floorscan: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// The current working directory is the station: its .floorscan folder
	// holds the yaml config and the logbook.
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	if err := config.InitStationDir(cwd); err != nil {
		return fmt.Errorf("initializing %s: %w", config.FloorscanDir, err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return err
	}

	lb, err := logbook.New(cfg.LogPath())
	if err != nil {
		return fmt.Errorf("opening logbook: %w", err)
	}

	ctx := context.Background()

	st, err := store.Open(ctx, cfg.Secrets.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connecting job store: %w", err)
	}
	defer st.Close()
	if err := st.Init(ctx); err != nil {
		return fmt.Errorf("preparing job store: %w", err)
	}

	source, err := newScanSource(cfg)
	if err != nil {
		return err
	}
	session := scan.NewSession(source, cfg.ScanTimeout())

	// Create and run the TUI
	// tea.NewProgram creates a new bubbletea application
	// tui.NewApp returns our main application model
	p := tea.NewProgram(
		tui.NewApp(ctx, cfg, st, st, session,
			tui.WithLogbook(lb),
			tui.WithWakeLock(&wakelock.Lock{}),
		),
		tea.WithAltScreen(), // Use alternate screen buffer (like vim does)
	)

	// Run blocks until the user quits
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

// newScanSource picks the decode source the station yaml names.
func newScanSource(cfg *config.Config) (scan.Source, error) {
	sc := cfg.Station.Scanner
	switch sc.Source {
	case config.SourceDevice:
		return scan.NewDeviceSource(sc.DevicePath, sc.Capture), nil
	case config.SourceRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Secrets.RedisAddr,
			Password: cfg.Secrets.RedisPassword,
		})
		return scan.NewRedisSource(rdb, sc.RedisChannel, sc.Capture), nil
	default:
		return nil, fmt.Errorf("unknown scanner source %q", sc.Source)
	}
}
