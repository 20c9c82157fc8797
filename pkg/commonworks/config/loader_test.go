package config

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognicore/commonworks/pkg/commonworks/internalerr"
	"github.com/cognicore/commonworks/pkg/commonworks/store"
	"github.com/cognicore/commonworks/pkg/commonworks/store/memstore"
)

func TestLoaderDefaults(t *testing.T) {
	loader := Loader{}
	comp, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Default loader should succeed: %v", err)
	}
	defer comp.Store.Close()

	if _, ok := comp.Store.(*memstore.Store); !ok {
		t.Errorf("expected memstore, got %T", comp.Store)
	}
	if comp.Logger == nil {
		t.Error("Should have logger")
	}
	if !comp.Ingest.Reset {
		t.Error("ingest options should reset by default")
	}
	if comp.Ingest.Logger != comp.Logger {
		t.Error("pipeline should log through the configured logger")
	}
}

func TestLoaderSQLite(t *testing.T) {
	cfg := Default()
	cfg.Store = Store{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "cw.db")}
	cfg.Log.Level = "debug"

	var logs bytes.Buffer
	loader := Loader{Config: cfg, LogOutput: &logs}
	comp, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer comp.Store.Close()

	n, err := comp.Store.Count(context.Background(), store.KindWorks)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("fresh database has %d works", n)
	}
	if !strings.Contains(logs.String(), "commonworks.config.store.open") {
		t.Errorf("expected store open log, got %q", logs.String())
	}
}

func TestLoaderInvalidConfig(t *testing.T) {
	cfg := Default()
	cfg.Store.Driver = "mongo"
	loader := Loader{Config: cfg}
	if _, err := loader.Load(context.Background()); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestOpenStorePostgresWithoutDSN(t *testing.T) {
	_, err := OpenStore(context.Background(), Store{Driver: DriverPostgres})
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
