// Command bayesreg serves stored analysis runs: a JSON API, HTML run pages
// and the figures and reports written by bayesreg-cli.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bayesreg/adapters/store"
	"bayesreg/internal"
	"bayesreg/internal/config"
	"bayesreg/internal/errors"
	"bayesreg/ports"
	"bayesreg/ui"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	flags := pflag.NewFlagSet("bayesreg", pflag.ExitOnError)
	cfgFile := flags.String("config", "", "YAML config file (default ./bayesreg.yaml when present)")
	envFile := flags.String("env-file", "", "dotenv file (default ./.env when present)")
	flags.String("port", "", "listen port (default 8080)")
	flags.String("debug-port", "", "serve pprof on this port")
	flags.String("dsn", "", "run store DSN (postgres://... or a sqlite path)")
	flags.String("out", "", "directory of written reports and figures, served under /artifacts")
	flags.String("log-level", "", "log level: error|warn|info|debug|trace")
	_ = flags.Parse(os.Args[1:])

	if err := run(flags, *cfgFile, *envFile); err != nil {
		fmt.Fprintln(os.Stderr, "bayesreg:", err)
		os.Exit(errors.ExitCode(err))
	}
}

func run(flags *pflag.FlagSet, cfgFile, envFile string) error {
	appConfig, err := config.Load(config.LoadOptions{ConfigFile: cfgFile, EnvFile: envFile, Flags: flags})
	if err != nil {
		return err
	}

	level, err := internal.ParseLogLevel(appConfig.Log.Level)
	if err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	log, err := internal.NewLogger(level, appConfig.Log.Encoding)
	if err != nil {
		return errors.Wrap(err, "create logger")
	}
	defer log.Sync()
	logger := log.Zap()

	if appConfig.Store.DSN == "" {
		return errors.ConfigInvalid("store.dsn is required to serve runs")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := store.Open(ctx, appConfig.Store.DSN, appConfig.Store.MaxOpenConns, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	if appConfig.Server.DebugPort != "" {
		go ui.RunDebug(appConfig.Server.DebugPort, logger)
	}

	server, err := ui.NewServer(ports.NewRunReader(repo), ui.Config{
		Port:         appConfig.Server.Port,
		GinMode:      appConfig.Server.GinMode,
		ArtifactsDir: appConfig.Report.Dir,
	}, logger)
	if err != nil {
		return err
	}

	driver, _ := store.DriverFor(appConfig.Store.DSN)
	logger.Info("starting bayesreg report server",
		zap.String("port", appConfig.Server.Port),
		zap.String("store", driver),
		zap.String("artifacts", appConfig.Report.Dir))
	return server.Run(ctx)
}
