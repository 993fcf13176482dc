package main

import (
	"context"
	"fmt"
	"os"

	"bayesreg/adapters/store"
	"bayesreg/internal"
	"bayesreg/internal/migration"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	reset := pflag.Bool("reset", false, "drop all run-store tables before migrating")
	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: migrate [--reset] <dsn>")
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if pflag.NArg() != 1 {
		pflag.Usage()
		os.Exit(2)
	}

	log := internal.NewDefaultLogger()
	defer log.Sync()
	logger := log.Zap()

	if err := migrate(context.Background(), pflag.Arg(0), *reset, logger); err != nil {
		logger.Error("migration failed", zap.Error(err))
		os.Exit(1)
	}
}

func migrate(ctx context.Context, dsn string, reset bool, logger *zap.Logger) error {
	// Open applies the schema
	repo, err := store.Open(ctx, dsn, 1, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	runner := migration.NewRunner()
	if reset {
		logger.Warn("resetting run store - dropping all tables")
		if err := runner.Reset(ctx, repo.DB()); err != nil {
			return err
		}
		if err := runner.Run(ctx, repo.DB()); err != nil {
			return err
		}
	}

	applied, err := runner.Applied(ctx, repo.DB())
	if err != nil {
		return err
	}
	driver, _ := store.DriverFor(dsn)
	for _, v := range applied {
		logger.Info("schema version", zap.String("driver", driver), zap.String("version", v.Version), zap.String("applied_at", v.AppliedAt))
	}
	return nil
}
