package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	flag "github.com/spf13/pflag"

	"github.com/cognicore/commonworks/internal/ui"
	"github.com/cognicore/commonworks/pkg/commonworks"
	"github.com/cognicore/commonworks/pkg/commonworks/config"
	"github.com/cognicore/commonworks/pkg/commonworks/ingest"
)

type options struct {
	configPath  string
	driver      string
	dbPath      string
	dsn         string
	noReset     bool
	logLevel    string
	logFormat   string
	metricsFile string
	jsonOut     bool
	noColor     bool
}

func main() {
	var opts options
	fs := flag.CommandLine
	fs.StringVarP(&opts.configPath, "config", "c", "", "YAML config file (optional)")
	fs.StringVar(&opts.driver, "driver", "", "Store driver: memory, sqlite or postgres")
	fs.StringVar(&opts.dbPath, "db", "", "SQLite database path")
	fs.StringVar(&opts.dsn, "dsn", "", "Postgres connection string")
	fs.BoolVar(&opts.noReset, "no-reset", false, "Merge into the stored data instead of replacing it")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")
	fs.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the run")
	fs.BoolVar(&opts.jsonOut, "json", false, "Print run reports as JSON")
	fs.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: commonworks-load [options] DOCUMENT.json...\n\n"+
			"Unless --no-reset is given, the store is emptied once before the first\n"+
			"document; the remaining documents are merged into it in order.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	flag.Parse()

	ui.InitColors(opts.noColor)
	if flag.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(fs, opts)
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	engine, cleanup, err := buildEngine(ctx, cfg, os.Stderr)
	if err != nil {
		log.Fatal("Failed to start: ", err)
	}
	defer cleanup()

	failed, err := loadAll(ctx, engine, flag.Args(), cfg.Ingest.Reset, os.Stdout, os.Stderr, opts.jsonOut)
	if err != nil {
		cleanup()
		log.Fatal("Failed to reset store: ", err)
	}

	if opts.metricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.metricsFile, prometheus.DefaultGatherer); err != nil {
			ui.Warningf(os.Stderr, "write metrics: %v", err)
		}
	}

	if failed > 0 {
		cleanup()
		os.Exit(1)
	}
}

// loadConfig reads the config file, if any, then applies the flags that
// were set explicitly.
func loadConfig(fs *flag.FlagSet, opts options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return nil, err
		}
	}

	if fs.Changed("driver") {
		cfg.Store.Driver = opts.driver
	}
	if fs.Changed("db") {
		cfg.Store.Path = opts.dbPath
		if !fs.Changed("driver") {
			cfg.Store.Driver = config.DriverSQLite
		}
	}
	if fs.Changed("dsn") {
		cfg.Store.DSN = opts.dsn
		if !fs.Changed("driver") {
			cfg.Store.Driver = config.DriverPostgres
		}
	}
	if fs.Changed("no-reset") {
		cfg.Ingest.Reset = !opts.noReset
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if fs.Changed("log-format") {
		cfg.Log.Format = opts.logFormat
	}
	return cfg, cfg.Validate()
}

func buildEngine(ctx context.Context, cfg *config.Config, logOut io.Writer) (*commonworks.Engine, func(), error) {
	loader := config.Loader{Config: cfg, LogOutput: logOut}
	components, err := loader.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	// loadAll resets once for the whole batch of files.
	engine := commonworks.New(commonworks.Options{
		Store:      components.Store,
		Logger:     components.Logger,
		GroupTypes: components.Ingest.GroupTypes,
	})

	cleanup := func() {
		engine.Close()
	}
	return engine, cleanup, nil
}

// loadAll empties the store when reset is set, then loads every path in
// order. It returns how many documents failed; a failed reset stops it
// before any document is read.
func loadAll(ctx context.Context, engine *commonworks.Engine, paths []string, reset bool, out, errOut io.Writer, asJSON bool) (int, error) {
	if reset {
		if err := engine.Reset(ctx); err != nil {
			return 0, err
		}
	}

	failed := 0
	for _, path := range paths {
		report, err := engine.LoadFile(ctx, path)
		if report != nil {
			printReport(out, path, report, asJSON)
		}
		if err != nil {
			ui.Errorf(errOut, "%s: %v", path, err)
			failed++
		}
	}
	return failed, nil
}

func printReport(w io.Writer, path string, r *ingest.Report, asJSON bool) {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(r)
		return
	}

	ui.Header(w, path)
	const width = 16
	ui.Row(w, width, "run", r.RunID)
	ui.Row(w, width, "submitter", r.SubmitterID)
	ui.Row(w, width, "agreements", r.Agreements)
	ui.Row(w, width, "parties", r.Parties)
	ui.Row(w, width, "participations", r.Participations)
	ui.Row(w, width, "works", r.Works)
	ui.Row(w, width, "amended works", r.AmendedWorks)
	ui.Row(w, width, "rejected nodes", r.Rejected.Total())
	if len(r.SkippedGroups) > 0 {
		ui.Row(w, width, "skipped groups", r.SkippedGroups)
	}

	for _, d := range r.Diagnostics {
		ui.Warningf(w, "%s #%d %s: %s", d.Group, d.Index, d.Key, d.Reason)
	}
	if n := r.Dropped(); n > 0 {
		ui.Warningf(w, "%d transactions dropped", n)
	} else {
		ui.Successf(w, "loaded in %s", r.Duration)
	}
	fmt.Fprintln(w)
}
