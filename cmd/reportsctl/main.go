// Command reportsctl drives the report merge-and-store engine from the
// command line: upsert a daily summary, upsert a scraped event partition,
// print a sheet, or tail the run ledger.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"fleetreports/internal/blob"
	"fleetreports/internal/config"
	"fleetreports/internal/ingest"
	"fleetreports/internal/ledger"
	"fleetreports/internal/logging"
	"fleetreports/internal/report"
	"fleetreports/internal/reports"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()
	var runErr error
	switch os.Args[1] {
	case "upsert-summary":
		runErr = runUpsertSummary(ctx, cfg, os.Args[2:])
	case "upsert-events":
		runErr = runUpsertEvents(ctx, cfg, os.Args[2:])
	case "show":
		runErr = runShow(ctx, cfg, os.Args[2:])
	case "recent":
		runErr = runRecent(ctx, cfg, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: reportsctl <command> [flags]

commands:
  upsert-summary  merge one daily summary record into the report
  upsert-events   merge a scraped visit batch into one POI partition
  show            print a report sheet
  recent          tail the run ledger`)
}

func newManager(ctx context.Context, cfg config.Config) (*reports.Manager, ledger.Ledger, error) {
	store, err := blob.OpenDriver(ctx, blob.Driver(cfg.BlobDriver))
	if err != nil {
		return nil, nil, err
	}
	runs, err := ledger.OpenDriver(ctx, cfg.LedgerDriver)
	if err != nil {
		return nil, nil, err
	}
	mgr := reports.New(store, reports.Config{
		Folder:      cfg.ReportFolder,
		File:        cfg.ReportFile,
		DropIfEmpty: cfg.DropIfEmpty,
		Facility:    cfg.Facility,
	}, reports.WithLedger(runs))
	return mgr, runs, nil
}

func runUpsertSummary(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("upsert-summary", flag.ExitOnError)
	var (
		facility = fs.String("facility", cfg.Facility, "facility code")
		date     = fs.String("date", "", "calendar day, YYYY-MM-DD (required)")
		metric   = fs.Float64("metric", 0, "raw daily metric before per-hour normalization")
		downtime = fs.Float64("downtime", 0, "maintenance downtime hours")
		fleet    = fs.Int("fleet", 0, "total fleet size (required unless a roster is configured)")
		reserve  = fs.Int("reserve", 3, "reserve vehicles excluded from availability")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	reserveSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "reserve" {
			reserveSet = true
		}
	})
	if *fleet <= 0 && cfg.RosterFile != "" {
		roster, err := config.LoadRosterFile(cfg.RosterFile)
		if err != nil {
			return err
		}
		fac, ok := roster.Facility(*facility)
		if !ok {
			return fmt.Errorf("upsert-summary: facility %q not in roster", *facility)
		}
		*fleet = fac.Fleet
		if !reserveSet {
			*reserve = fac.Reserve
		}
	}
	if *date == "" || *fleet <= 0 {
		return fmt.Errorf("upsert-summary: -date and -fleet (or a roster) are required")
	}
	day, err := time.Parse("2006-01-02", *date)
	if err != nil {
		return fmt.Errorf("upsert-summary: bad -date: %w", err)
	}

	mgr, runs, err := newManager(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = runs.Close() }()

	in := ingest.SummaryInput{Date: day, RawMetric: *metric, DowntimeHours: *downtime, FleetSize: *fleet, Reserve: *reserve}
	outcome, err := mgr.UpsertDailySummary(ctx, in.Record(*facility))
	if err != nil {
		return err
	}
	fmt.Println(outcome)
	return nil
}

func runUpsertEvents(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("upsert-events", flag.ExitOnError)
	var (
		poi    = fs.String("poi", "", "point of interest code (required)")
		month  = fs.Int("month", 0, "partition month 1-12 (required)")
		year   = fs.Int("year", 0, "partition year (required)")
		visits = fs.String("visits", "", "path to a visits JSON file (required)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *poi == "" || *month < 1 || *month > 12 || *year == 0 || *visits == "" {
		return fmt.Errorf("upsert-events: -poi, -month, -year and -visits are required")
	}

	raw, err := os.ReadFile(*visits)
	if err != nil {
		return fmt.Errorf("upsert-events: %w", err)
	}
	var vs []report.Visit
	if err := json.Unmarshal(raw, &vs); err != nil {
		return fmt.Errorf("upsert-events: parse %s: %w", *visits, err)
	}

	mgr, runs, err := newManager(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = runs.Close() }()

	events, hourly := report.BuildActivity(vs, *poi)
	outcome, err := mgr.UpsertEventPartition(ctx, events, hourly, *poi, time.Month(*month), *year)
	if err != nil {
		return err
	}
	fmt.Println(outcome)
	return nil
}

func runShow(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	sheet := fs.String("sheet", report.SheetSummary, "sheet to print: Summary, Events or HourlyAggregate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	mgr, runs, err := newManager(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = runs.Close() }()

	var t report.Table
	switch *sheet {
	case report.SheetSummary:
		var found bool
		t, found, err = mgr.LoadSummary(ctx)
		if err != nil {
			return err
		}
		if !found {
			fmt.Println("report not created yet")
			return nil
		}
	case report.SheetEvents, report.SheetHourly:
		t, err = mgr.LoadPartition(ctx, reports.SheetKind(*sheet))
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("show: unknown sheet %q", *sheet)
	}

	printTable(t)
	return nil
}

func runRecent(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("recent", flag.ExitOnError)
	limit := fs.Int("n", 20, "number of ledger entries")
	if err := fs.Parse(args); err != nil {
		return err
	}
	runs, err := ledger.OpenDriver(ctx, cfg.LedgerDriver)
	if err != nil {
		return err
	}
	defer func() { _ = runs.Close() }()

	entries, err := runs.Recent(ctx, *limit)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s %-16s %-8s facility=%s poi=%s %d/%d rows=%d %s %s\n",
			e.At.Format(time.RFC3339), e.Kind, e.Outcome, e.Facility, e.POI, e.Month, e.Year, e.Rows, e.Duration, e.Error)
	}
	return nil
}

func printTable(t report.Table) {
	if len(t.Columns) == 0 {
		fmt.Println("(empty)")
		return
	}
	for i, c := range t.Columns {
		if i > 0 {
			fmt.Print("\t")
		}
		fmt.Print(c)
	}
	fmt.Println()
	for _, row := range t.Rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Print("\t")
			}
			switch v := cell.(type) {
			case time.Time:
				fmt.Print(v.Format("2006-01-02 15:04:05"))
			default:
				fmt.Print(v)
			}
		}
		fmt.Println()
	}
}
