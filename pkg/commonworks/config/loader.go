package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/cognicore/commonworks/internal/logging"
	"github.com/cognicore/commonworks/pkg/commonworks/ingest"
	"github.com/cognicore/commonworks/pkg/commonworks/store"
	"github.com/cognicore/commonworks/pkg/commonworks/store/memstore"
	"github.com/cognicore/commonworks/pkg/commonworks/store/postgres"
	"github.com/cognicore/commonworks/pkg/commonworks/store/sqlite"
)

// Loader builds the runtime components from a Config.
type Loader struct {
	Config *Config
	// LogOutput receives log records; nil discards them.
	LogOutput io.Writer
}

// Components holds the opened store and the logger. The caller closes Store.
type Components struct {
	Store  store.Store
	Logger *slog.Logger
	Ingest ingest.Options
}

// Load opens the configured store and builds the logger.
func (l *Loader) Load(ctx context.Context) (*Components, error) {
	cfg := l.Config
	if cfg == nil {
		cfg = Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	out := l.LogOutput
	if out == nil {
		out = io.Discard
	}
	logger, err := logging.New(out, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	st, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	logger.Debug("commonworks.config.store.open", "driver", cfg.Store.Driver)

	return &Components{
		Store:  st,
		Logger: logger,
		Ingest: ingest.Options{
			Reset:      cfg.Ingest.Reset,
			GroupTypes: cfg.Ingest.GroupTypes,
			Logger:     logger,
		},
	}, nil
}

// OpenStore opens the backend named by sc.Driver.
func OpenStore(ctx context.Context, sc Store) (store.Store, error) {
	switch sc.Driver {
	case DriverMemory, "":
		return memstore.New(), nil
	case DriverSQLite:
		if sc.Path == "" {
			return nil, invalid("store.path is required for the sqlite driver")
		}
		return sqlite.Open(ctx, sc.Path)
	case DriverPostgres:
		return postgres.Open(ctx, sc.DSN)
	}
	return nil, invalid(fmt.Sprintf("unknown store.driver %q", sc.Driver))
}
