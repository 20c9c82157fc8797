package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cognicore/commonworks/pkg/commonworks/document"
	"github.com/cognicore/commonworks/pkg/commonworks/internalerr"
)

func TestLoadFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "commonworks.yaml")

	content := `store:
  driver: sqlite
  path: /var/lib/commonworks/db.sqlite
ingest:
  reset: false
  group_types:
    revised_works: XRV
log:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Store.Driver != DriverSQLite || cfg.Store.Path != "/var/lib/commonworks/db.sqlite" {
		t.Errorf("unexpected store section %+v", cfg.Store)
	}
	if cfg.Ingest.Reset {
		t.Error("reset should be false")
	}
	want := document.GroupTypes{Agreements: "AGR", NewWorks: "NWR", RevisedWorks: "XRV"}
	if cfg.Ingest.GroupTypes != want {
		t.Errorf("group types = %+v, want %+v", cfg.Ingest.GroupTypes, want)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("unexpected log section %+v", cfg.Log)
	}
}

func TestParseEmptyKeepsDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	if *cfg != *Default() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
	if !cfg.Ingest.Reset {
		t.Error("reset should default to true")
	}
}

func TestParseExpandsDSN(t *testing.T) {
	t.Setenv("CW_TEST_PASSWORD", "s3cret")
	cfg, err := Parse([]byte("store:\n  driver: postgres\n  dsn: postgres://cw:${CW_TEST_PASSWORD}@db/cw\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.DSN != "postgres://cw:s3cret@db/cw" {
		t.Errorf("DSN not expanded: %q", cfg.Store.DSN)
	}
}

func TestParseInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown driver":      "store:\n  driver: mongo\n",
		"sqlite without path": "store:\n  driver: sqlite\n",
		"postgres no dsn":     "store:\n  driver: postgres\n",
		"empty group type":    "ingest:\n  group_types:\n    agreements: \"\"\n",
		"shared group type":   "ingest:\n  group_types:\n    new_works: AGR\n",
		"bad level":           "log:\n  level: loud\n",
		"bad format":          "log:\n  format: xml\n",
		"bad yaml":            "store: [\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(content))
			if !errors.Is(err, internalerr.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadNonExistent(t *testing.T) {
	if _, err := Load("/nonexistent/commonworks.yaml"); err == nil {
		t.Error("Should error on nonexistent config")
	}
}
