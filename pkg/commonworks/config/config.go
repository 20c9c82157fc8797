package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/commonworks/internal/logging"
	"github.com/cognicore/commonworks/pkg/commonworks/document"
	"github.com/cognicore/commonworks/pkg/commonworks/internalerr"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the YAML configuration shared by the commands.
type Config struct {
	Store  Store  `yaml:"store"`
	Ingest Ingest `yaml:"ingest"`
	Log    Log    `yaml:"log"`
}

// Store selects and locates the backend.
type Store struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	// DSN is expanded against the environment, so passwords can stay out
	// of the file.
	DSN string `yaml:"dsn"`
}

// Ingest configures the pipeline.
type Ingest struct {
	Reset      bool                `yaml:"reset"`
	GroupTypes document.GroupTypes `yaml:"group_types"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns an in-memory store, reset on every run, info-level text logs.
func Default() *Config {
	return &Config{
		Store:  Store{Driver: DriverMemory},
		Ingest: Ingest{Reset: true, GroupTypes: document.DefaultGroupTypes()},
		Log:    Log{Level: "info", Format: logging.FormatText},
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result. Keys
// missing from data keep their default.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", internalerr.ErrInvalidConfig, err)
	}
	cfg.Store.DSN = os.ExpandEnv(cfg.Store.DSN)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks driver requirements, group type names and log settings.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Store.Path == "" {
			return invalid("store.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Store.DSN == "" {
			return invalid("store.dsn is required for the postgres driver")
		}
	default:
		return invalid(fmt.Sprintf("unknown store.driver %q", c.Store.Driver))
	}

	gt := c.Ingest.GroupTypes
	names := map[string]string{
		"agreements":    gt.Agreements,
		"new_works":     gt.NewWorks,
		"revised_works": gt.RevisedWorks,
	}
	seen := make(map[string]string, len(names))
	for field, name := range names {
		if name == "" {
			return invalid("ingest.group_types." + field + " is empty")
		}
		if other, dup := seen[name]; dup {
			return invalid(fmt.Sprintf("ingest.group_types %s and %s both use %q", other, field, name))
		}
		seen[name] = field
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return logging.CheckFormat(c.Log.Format)
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", internalerr.ErrInvalidConfig, msg)
}
