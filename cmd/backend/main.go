package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	configloader "github.com/foxseedlab/taskbot/external/config"
	"github.com/foxseedlab/taskbot/external/httpserver"
	"github.com/foxseedlab/taskbot/external/jira"
	repositoryimpl "github.com/foxseedlab/taskbot/external/repository"
	"github.com/foxseedlab/taskbot/external/rocketchat"
	webhookimpl "github.com/foxseedlab/taskbot/external/webhook"
	"github.com/foxseedlab/taskbot/internal/access"
	"github.com/foxseedlab/taskbot/internal/config"
	"github.com/foxseedlab/taskbot/internal/dialogue"
	"github.com/foxseedlab/taskbot/internal/logview"
	"github.com/foxseedlab/taskbot/internal/poller"
	"github.com/samber/do/v2"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

func main() {
	var envFile string
	flagSet := pflag.NewFlagSet("taskbot", pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env-file", "", "path to a dotenv file (default: .env if present)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		slog.Error("invalid arguments", "error", err)
		os.Exit(2)
	}

	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig(envFile)
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env, "http_addr", cfg.HTTPAddr)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)
	defer injector.Shutdown()

	if err := run(injector); err != nil {
		slog.Error("taskbot stopped with error", "error", err)
		injector.Shutdown()
		os.Exit(1)
	}
	slog.Info("taskbot stopped")
}

func mustLoadConfig(envFile string) *config.Config {
	cfg, err := configloader.Load(envFile)
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	rocketchat.RegisterDI(injector)
	jira.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	access.RegisterDI(injector)
	dialogue.RegisterDI(injector)
	poller.RegisterDI(injector)
	logview.RegisterDI(injector)
	httpserver.RegisterDI(injector)

	return injector
}

// run serves the poll loop and the log view until a signal arrives or either
// of them fails.
func run(injector do.Injector) error {
	loop, err := do.Invoke[*poller.Loop](injector)
	if err != nil {
		return err
	}
	server, err := do.Invoke[*httpserver.Server](injector)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("startup: entering poll loop")
		return loop.Run(gctx)
	})
	g.Go(func() error {
		return server.Run(gctx)
	})
	return g.Wait()
}
