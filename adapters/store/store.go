// Package store persists analysis runs with sqlx over Postgres or SQLite.
package store

import (
	"context"
	"fmt"
	"strings"

	"bayesreg/internal/errors"
	"bayesreg/internal/migration"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DriverFor picks the database/sql driver for a DSN: postgres:// URLs and
// key=value strings containing host= go to lib/pq, everything else is a
// SQLite path or URI.
func DriverFor(dsn string) (driver, source string) {
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"),
		strings.Contains(lower, "host="):
		return DriverPostgres, dsn
	case strings.HasPrefix(lower, "sqlite://"):
		return DriverSQLite, dsn[len("sqlite://"):]
	}
	return DriverSQLite, dsn
}

// Open connects, applies the schema and returns a ready repository
func Open(ctx context.Context, dsn string, maxOpen int, logger *zap.Logger) (*RunRepository, error) {
	if dsn == "" {
		return nil, errors.ConfigInvalid("store.dsn is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	driver, source := DriverFor(dsn)

	db, err := sqlx.Open(driver, source)
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, fmt.Errorf("open %s store: %w", driver, err))
	}
	if driver == DriverSQLite {
		// one writer; also keeps :memory: databases on a single connection
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
			db.Close()
			return nil, errors.WithCode(errors.CodeDatabaseError, err)
		}
	} else if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.WithCode(errors.CodeDatabaseError, fmt.Errorf("connect %s store: %w", driver, err))
	}

	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug("run store ready", zap.String("driver", driver))
	return NewRunRepository(db, logger), nil
}
