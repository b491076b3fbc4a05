// Command reportsd is the ingest daemon: it scans a drop-box directory for
// scraped batch files on an interval and merges each one into the shared
// report, one in-flight cycle at a time. It serves /metrics and /healthz.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fleetreports/internal/blob"
	"fleetreports/internal/config"
	"fleetreports/internal/ingest"
	"fleetreports/internal/ledger"
	"fleetreports/internal/logging"
	"fleetreports/internal/metrics"
	"fleetreports/internal/report"
	"fleetreports/internal/reports"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	log := slog.Default()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := blob.OpenDriver(ctx, blob.Driver(cfg.BlobDriver))
	if err != nil {
		return err
	}
	runs, err := ledger.OpenDriver(ctx, cfg.LedgerDriver)
	if err != nil {
		return err
	}
	defer func() { _ = runs.Close() }()

	var roster *config.Roster
	if cfg.RosterFile != "" {
		r, err := config.LoadRosterFile(cfg.RosterFile)
		if err != nil {
			return err
		}
		roster = &r
		log.Info("roster loaded", "file", cfg.RosterFile, "facilities", len(r.Facilities))
	}

	met := metrics.New()
	mgr := reports.New(store, reports.Config{
		Folder:      cfg.ReportFolder,
		File:        cfg.ReportFile,
		DropIfEmpty: cfg.DropIfEmpty,
		Facility:    cfg.Facility,
	}, reports.WithLogger(log), reports.WithMetrics(met), reports.WithLedger(runs))

	mux := http.NewServeMux()
	mux.Handle("/metrics", met.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	box := ingest.DropBox{Dir: cfg.SourceDir}
	log.Info("reportsd started",
		"store", string(store.Driver()), "folder", cfg.ReportFolder, "file", cfg.ReportFile,
		"source", cfg.SourceDir, "interval", cfg.Interval.String())

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	// The scan is serial: at most one merge-and-store cycle is ever in
	// flight against the report.
	sweep(ctx, log, mgr, box, roster, cfg.Facility)
	for {
		select {
		case <-ctx.Done():
			log.Info("reportsd stopping")
			return nil
		case <-ticker.C:
			sweep(ctx, log, mgr, box, roster, cfg.Facility)
		}
	}
}

func sweep(ctx context.Context, log *slog.Logger, mgr *reports.Manager, box ingest.DropBox, roster *config.Roster, facility string) {
	pending, err := box.Pending()
	if err != nil {
		log.Error("drop-box scan failed", "err", err)
		return
	}
	for _, p := range pending {
		if ctx.Err() != nil {
			return
		}
		if err := process(ctx, log, mgr, p, roster, facility); err != nil {
			// leave the file in place; the next sweep retries the
			// whole upsert
			log.Error("batch failed", "file", p.Path, "err", err)
			continue
		}
		if err := box.Done(p); err != nil {
			log.Error("batch archive failed", "file", p.Path, "err", err)
		}
	}
}

func process(ctx context.Context, log *slog.Logger, mgr *reports.Manager, p ingest.Pending, roster *config.Roster, facility string) error {
	b := p.Batch
	if b.Facility == "" {
		b.Facility = facility
	}
	switch {
	case b.Summary != nil:
		outcome, err := mgr.UpsertDailySummary(ctx, b.Summary.Record(b.Facility))
		if err != nil {
			return err
		}
		log.Info("summary batch done", "file", p.Path, "outcome", string(outcome))
		return nil
	case b.POI != "":
		if roster != nil && !roster.ActivePOI(b.Facility, b.POI) {
			return fmt.Errorf("batch %s: poi %s not active for facility %s", p.Path, b.POI, b.Facility)
		}
		events, hourly := report.BuildActivity(b.Visits, b.POI)
		outcome, err := mgr.UpsertEventPartition(ctx, events, hourly, b.POI, time.Month(b.Month), b.Year)
		if err != nil {
			return err
		}
		log.Info("event batch done", "file", p.Path, "poi", b.POI, "outcome", string(outcome))
		return nil
	default:
		return fmt.Errorf("batch %s has neither summary nor poi", p.Path)
	}
}
