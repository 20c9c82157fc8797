package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"

	"github.com/cognicore/commonworks/pkg/commonworks"
	"github.com/cognicore/commonworks/pkg/commonworks/config"
	"github.com/cognicore/commonworks/pkg/commonworks/ingest"
	"github.com/cognicore/commonworks/pkg/commonworks/internalerr"
	"github.com/cognicore/commonworks/pkg/commonworks/model"
	"github.com/cognicore/commonworks/pkg/commonworks/store/storetest"
)

const sampleDoc = "../../pkg/commonworks/testdata/sample.json"

func parseFlags(t *testing.T, args ...string) (*flag.FlagSet, options) {
	t.Helper()
	var opts options
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.StringVarP(&opts.configPath, "config", "c", "", "")
	fs.StringVar(&opts.driver, "driver", "", "")
	fs.StringVar(&opts.dbPath, "db", "", "")
	fs.StringVar(&opts.dsn, "dsn", "", "")
	fs.BoolVar(&opts.noReset, "no-reset", false, "")
	fs.StringVar(&opts.logLevel, "log-level", "", "")
	fs.StringVar(&opts.logFormat, "log-format", "", "")
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	return fs, opts
}

func TestLoadConfigDefaults(t *testing.T) {
	fs, opts := parseFlags(t)
	cfg, err := loadConfig(fs, opts)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.Driver != config.DriverMemory || !cfg.Ingest.Reset {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cw.yaml")
	content := "store:\n  driver: postgres\n  dsn: postgres://db/cw\nlog:\n  level: warn\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	fs, opts := parseFlags(t, "-c", path, "--db", "/tmp/cw.db", "--no-reset")
	cfg, err := loadConfig(fs, opts)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.Driver != config.DriverSQLite || cfg.Store.Path != "/tmp/cw.db" {
		t.Errorf("--db should select sqlite: %+v", cfg.Store)
	}
	if cfg.Ingest.Reset {
		t.Error("--no-reset should disable reset")
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("file log level lost: %q", cfg.Log.Level)
	}
}

func TestLoadConfigInvalidFlag(t *testing.T) {
	fs, opts := parseFlags(t, "--log-format", "xml")
	if _, err := loadConfig(fs, opts); err == nil {
		t.Error("expected invalid log format to fail")
	}
}

func TestBuildEngineAndLoad(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Store = config.Store{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "cw.db")}

	var logs bytes.Buffer
	engine, cleanup, err := buildEngine(ctx, cfg, &logs)
	if err != nil {
		t.Fatalf("buildEngine failed: %v", err)
	}
	defer cleanup()

	report, err := engine.LoadFile(ctx, sampleDoc)
	if err != nil {
		t.Fatal(err)
	}
	if report.Works != 2 {
		t.Errorf("expected 2 works, got %d", report.Works)
	}
}

func TestLoadAllResetsOnceForEveryFile(t *testing.T) {
	ctx := context.Background()
	color.NoColor = true
	cfg := config.Default()
	cfg.Store = config.Store{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "cw.db")}

	engine, cleanup, err := buildEngine(ctx, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	if err := engine.Store().InsertWorks(ctx, []model.Work{storetest.Work("99", "STALE", "S1")}); err != nil {
		t.Fatal(err)
	}

	second := filepath.Join(t.TempDir(), "second.json")
	doc := `{"_header": {"sender_id": "62"}, "_group_types": {"NWR": 0},
		"_groups": [{"_transactions": [{"submitter_work_number": "X1", "title": "OTHER SONG"}]}]}`
	if err := os.WriteFile(second, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	var out, errOut bytes.Buffer
	failed, err := loadAll(ctx, engine, []string{sampleDoc, second}, true, &out, &errOut, false)
	if err != nil {
		t.Fatal(err)
	}
	if failed != 0 {
		t.Fatalf("%d documents failed: %s", failed, errOut.String())
	}

	counts, err := engine.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts != (commonworks.Counts{Agreements: 2, Parties: 2, Works: 3}) {
		t.Errorf("both documents should survive and stale data should go: %+v", counts)
	}
	if !strings.Contains(out.String(), second) {
		t.Errorf("missing report for %s:\n%s", second, out.String())
	}
}

func TestLoadAllCountsFailures(t *testing.T) {
	ctx := context.Background()
	color.NoColor = true
	engine, cleanup, err := buildEngine(ctx, config.Default(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	var out, errOut bytes.Buffer
	failed, err := loadAll(ctx, engine, []string{"missing.json", sampleDoc}, false, &out, &errOut, false)
	if err != nil {
		t.Fatal(err)
	}
	if failed != 1 || !strings.Contains(errOut.String(), "missing.json") {
		t.Errorf("failed=%d errOut=%q", failed, errOut.String())
	}
}

func TestBuildEngineBadDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = "mongo"
	_, _, err := buildEngine(context.Background(), cfg, nil)
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected invalid config, got %v", err)
	}
}

func TestPrintReport(t *testing.T) {
	color.NoColor = true
	r := &ingest.Report{
		RunID:       "01HRUN",
		SubmitterID: "61",
		Agreements:  2,
		Diagnostics: []internalerr.Diagnostic{{Group: "AGR", Index: 1, Key: "AG9", Reason: "duplicate entry"}},
	}

	var text bytes.Buffer
	printReport(&text, "doc.json", r, false)
	for _, want := range []string{"doc.json", "agreements", "AGR #1 AG9: duplicate entry", "1 transactions dropped"} {
		if !strings.Contains(text.String(), want) {
			t.Errorf("missing %q in:\n%s", want, text.String())
		}
	}

	var js bytes.Buffer
	printReport(&js, "doc.json", r, true)
	var decoded map[string]any
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if decoded["run_id"] != "01HRUN" {
		t.Errorf("unexpected JSON %v", decoded)
	}
}
