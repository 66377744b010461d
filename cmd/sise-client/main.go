package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"sisedash/internal/config"
	"sisedash/internal/util"
	"sisedash/pkg/sisedash"
)

func main() {
	cfgPath := "config/sisedash.yaml"
	if p := os.Getenv("SISE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	logPath := fmt.Sprintf("/tmp/sise-client-%s.log", time.Now().Format("2006-01-02"))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := util.NewLoggerTo(logFile, cfg.Logging.Level, "text")

	client := sisedash.NewClient(cfg.Server.Addr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The server may still be starting; a 404 means it is up but has no data.
	var snaps []sisedash.Snapshot
	err = util.Retry(ctx, 5, 200*time.Millisecond, func() error {
		var err error
		snaps, err = client.Snapshots(ctx)
		if errors.Is(err, sisedash.ErrNotFound) {
			return util.Permanent(err)
		}
		return err
	})
	switch {
	case errors.Is(err, sisedash.ErrNotFound):
		fmt.Fprintln(os.Stderr, "CSV 파일을 찾을 수 없습니다.")
		os.Exit(1)
	case err != nil:
		fmt.Fprintf(os.Stderr, "connecting to %s: %v\n", cfg.Server.Addr, err)
		os.Exit(1)
	}
	logger.Info("snapshots loaded", "count", len(snaps), "server", cfg.Server.Addr)

	p := tea.NewProgram(
		initialModel(ctx, cancel, client, snaps, logger),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// api is the part of the SDK the model talks to.
type api interface {
	Dashboard(ctx context.Context, q sisedash.DashboardQuery) (*sisedash.DashboardResponse, error)
	Ticker(ctx context.Context, code, name string) (*sisedash.TickerResponse, error)
}

var _ api = (*sisedash.Client)(nil)
