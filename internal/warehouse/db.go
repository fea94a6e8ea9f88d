// Package warehouse reconciles scraped products and synthetic sales into the
// star schema.
package warehouse

import (
	"errors"
	"fmt"
	"time"

	glebarez "github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	cgosqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrUnknownDriver = errors.New("warehouse: unknown driver")

type JoinPolicy string

const (
	// JoinInner drops rows whose category or product cannot be resolved.
	JoinInner JoinPolicy = "inner"
	// JoinStrict fails the whole load on the first unresolved row.
	JoinStrict JoinPolicy = "strict"
)

type Config struct {
	Driver     string     `json:"driver"` // sqlite | sqlite-cgo | mysql | postgres
	DSN        string     `json:"dsn"`    // file path for the sqlite drivers
	JoinPolicy JoinPolicy `json:"join_policy"`
	BatchSize  int        `json:"batch_size"`
	LogSQL     bool       `json:"log_sql"`
}

func (c Config) Validate() error {
	switch c.Driver {
	case "sqlite", "sqlite-cgo", "mysql", "postgres":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Driver)
	}
	if c.DSN == "" {
		return fmt.Errorf("warehouse: dsn required for driver %s", c.Driver)
	}
	switch c.JoinPolicy {
	case "", JoinInner, JoinStrict:
	default:
		return fmt.Errorf("warehouse: unknown join policy %q", c.JoinPolicy)
	}
	return nil
}

// Open connects to the configured warehouse. Schema is not touched; call Migrate.
func Open(log zerolog.Logger, cfg Config) (*gorm.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = glebarez.Open(cfg.DSN)
	case "sqlite-cgo":
		dialector = cgosqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	}

	level := logger.Silent
	if cfg.LogSQL {
		level = logger.Info
	}
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(sqlLogWriter{log}, logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s warehouse: %w", cfg.Driver, err)
	}
	return gdb, nil
}

// Migrate creates the star schema and the load ledger.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&DimCategory{},
		&DimProduct{},
		&DimTime{},
		&FactSales{},
		&LoadBatch{},
	); err != nil {
		return fmt.Errorf("AutoMigrate error: %w", err)
	}
	return nil
}

// sqlLogWriter routes gorm's SQL trace into zerolog.
type sqlLogWriter struct{ log zerolog.Logger }

func (w sqlLogWriter) Printf(format string, args ...any) {
	w.log.Debug().Str("component", "gorm").Msgf(format, args...)
}
