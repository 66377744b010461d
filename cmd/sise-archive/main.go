// Command sise-archive copies sise snapshot CSVs into Parquet files and
// records each one in a SQLite catalog. It is an offline tool run by hand;
// the dashboard server and client only read the CSV snapshot directory and
// never open the archive or the catalog.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"sisedash/internal/config"
	"sisedash/internal/domain"
	"sisedash/internal/snapshot"
	"sisedash/internal/store"
	"sisedash/internal/util"
)

func main() {
	snapshotID := flag.String("snapshot", "", "archive only this snapshot ID (YYYYMMDD_HHMMSS); default all")
	list := flag.Bool("list", false, "list archived snapshots and exit")
	flag.Parse()

	cfgPath := "config/sisedash.yaml"
	if p := os.Getenv("SISE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger := util.NewLoggerTo(os.Stderr, cfg.Logging.Level, "text")
	util.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	catalog, err := store.NewSQLiteStore(cfg.Storage.CatalogPath)
	if err != nil {
		log.Fatalf("opening catalog: %v", err)
	}
	defer catalog.Close()

	if *list {
		if err := printCatalog(ctx, catalog); err != nil {
			log.Fatalf("listing catalog: %v", err)
		}
		return
	}

	locator := snapshot.NewLocator(cfg.Storage.SnapshotDir, logger)
	var snaps []domain.Snapshot
	if *snapshotID != "" {
		snap, err := locator.Find(*snapshotID)
		if err != nil {
			log.Fatalf("finding snapshot: %v", err)
		}
		snaps = []domain.Snapshot{snap}
	} else {
		snaps, err = locator.List()
		if err != nil {
			log.Fatalf("listing snapshots: %v", err)
		}
	}

	archiver := store.NewArchiver(store.NewParquetStore(cfg.Storage.ArchiveDir), catalog, logger)
	n, err := archiver.ArchiveAll(ctx, snaps)
	if err != nil {
		log.Fatalf("archived %d of %d snapshots: %v", n, len(snaps), err)
	}
	logger.Info("archive complete", "snapshots", n, "dir", cfg.Storage.ArchiveDir)
}

func printCatalog(ctx context.Context, catalog store.Catalog) error {
	entries, err := catalog.List(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tROWS\tARCHIVED\tPATH")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Label, humanize.Comma(int64(e.Rows)), humanize.Time(e.ArchivedAt), e.ArchivePath)
	}
	return tw.Flush()
}
