package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"sisedash/internal/config"
	"sisedash/internal/dashboard"
	"sisedash/internal/httpapi"
	"sisedash/internal/naver"
	"sisedash/internal/snapshot"
	"sisedash/internal/util"
)

func main() {
	// Load config.
	cfgPath := "config/sisedash.yaml"
	if p := os.Getenv("SISE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// Setup logging.
	logFileName := fmt.Sprintf("/tmp/sise-server-%s.log", time.Now().Format("2006-01-02"))
	logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Fatalf("opening log file: %v", err)
	}
	defer logFile.Close()

	logger := util.NewLoggerTo(io.MultiWriter(os.Stdout, logFile), cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	// Wire the dashboard service.
	locator := snapshot.NewLocator(cfg.Storage.SnapshotDir, logger)
	if _, err := locator.List(); err != nil {
		logger.Warn("no snapshots yet", "dir", cfg.Storage.SnapshotDir, "error", err)
	}
	fetcher := naver.NewClient(
		naver.WithTimeout(time.Duration(cfg.Naver.TimeoutSec)*time.Second),
		naver.WithFinanceURL(cfg.Naver.FinanceURL),
		naver.WithSearchURL(cfg.Naver.SearchURL),
		naver.WithUserAgent(cfg.Naver.UserAgent),
		naver.WithNewsLimit(cfg.Naver.NewsLimit),
		naver.WithSummaryExtractor(naver.ClassSummary{Class: cfg.Naver.SummaryClass}),
		naver.WithNewsExtractor(naver.ClassNews{Class: cfg.Naver.NewsClass}),
		naver.WithLogger(logger),
	)
	svc := dashboard.NewService(locator, fetcher, dashboard.Options{
		MaxWorkers: cfg.Enrich.MaxWorkers,
		Limiter:    util.NewRateLimiter(cfg.Enrich.RateLimitPerMin),
		Logger:     logger,
	})
	srv := httpapi.NewDashboardServer(svc, logger)

	// Start HTTP server.
	httpServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		logger.Info("sise server listening",
			"addr", httpServer.Addr,
			"snapshots", cfg.Storage.SnapshotDir,
			"workers", cfg.Enrich.MaxWorkers,
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down sise server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
