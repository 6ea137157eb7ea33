package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/erazemk/izposoja/internal/api"
	"github.com/erazemk/izposoja/internal/config"
	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/events"
	"github.com/erazemk/izposoja/internal/inventory"
	"github.com/erazemk/izposoja/internal/logging"
	"github.com/erazemk/izposoja/internal/metrics"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/reconcile"
	"github.com/erazemk/izposoja/internal/store"
)

const usage = `Usage: izposoja [flags]

Flags:
  -d, -db <path|dsn>      SQLite path or Postgres DSN (default: izposoja.sqlite3)
  -driver <name>          database driver: sqlite or postgres (default: sqlite)
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -user <name>        admin name on first run (default: Admin)
  -l, -log <path>         JSON log file path (default: stdout/stderr only)
  -log-level <level>      debug, info, warn or error (default: info)
  -redis <url>            Redis URL for sharing change events between instances
  -reconcile <schedule>   cron schedule for ledger checks, empty to disable (default: @every 1h)
  -env <path>             env file to load (default: .env if present)
  -h, -help               show this help and exit

Every flag can also be set as IZPOSOJA_<NAME> in the environment.
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// envFileArg finds -env before the other flags are parsed, since the file
// supplies their defaults.
func envFileArg(args []string) string {
	for i, arg := range args {
		switch {
		case arg == "-env" || arg == "--env":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(arg, "-env="), strings.HasPrefix(arg, "--env="):
			return arg[strings.Index(arg, "=")+1:]
		}
	}
	return ""
}

func run(args []string) error {
	cfg, err := config.Load(envFileArg(args))
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("izposoja", flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	fs.String("env", "", "")
	fs.Usage = func() { fmt.Fprint(os.Stdout, usage) }

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closeLog, err := logging.New(cfg.LogLevel, cfg.LogPath)
	if err != nil {
		return err
	}
	defer closeLog()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dialect, err := cfg.Dialect()
	if err != nil {
		return err
	}
	database, err := db.Open(ctx, dialect, cfg.DSN)
	if err != nil {
		logger.Error("failed to open database", zap.Error(err))
		return err
	}
	defer database.Close()
	logger.Info("database ready", zap.String("driver", string(dialect)))

	m := metrics.New()
	hub := events.NewHub(logging.Named(logger, "events"))

	var publisher events.Publisher = hub
	if cfg.RedisURL != "" {
		client, err := events.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis", zap.Error(err))
			return err
		}
		defer client.Close()

		bridge := events.NewRedisBridge(client, cfg.RedisChannel, hub, logging.Named(logger, "redis"))
		publisher = bridge
		go func() {
			if err := bridge.Run(ctx); err != nil {
				logger.Error("event relay stopped", zap.Error(err))
			}
		}()
	}

	engine := inventory.New(database,
		inventory.WithEvents(publisher),
		inventory.WithMetrics(m),
		inventory.WithLogger(logging.Named(logger, "inventory")),
	)

	admin, pin, err := engine.EnsureAdmin(ctx, cfg.AdminName)
	if err != nil {
		logger.Error("failed to create admin", zap.Error(err))
		return err
	}
	if admin != nil {
		printAdmin(admin, pin)
	}

	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		logger.Error("failed to get JWT secret", zap.Error(err))
		return err
	}

	if cfg.ReconcileSchedule != "" {
		sched := reconcile.NewScheduler(database, cfg.ReconcileSchedule, m, logging.Named(logger, "reconcile"))
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
		if _, err := sched.RunOnce(ctx); err != nil {
			logger.Warn("initial ledger check failed", zap.Error(err))
		}
	}

	server := &http.Server{
		Addr: cfg.Addr,
		Handler: api.NewRouter(api.Config{
			Engine:    engine,
			JWTSecret: jwtSecret,
			Hub:       hub,
			Metrics:   m,
			Logger:    logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
		// No WriteTimeout: the event stream holds responses open.
	}

	// Event streams never go idle on their own; closing the hub ends them
	// so Shutdown can drain.
	server.RegisterOnShutdown(hub.Close)

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server forced to shutdown", zap.Error(err))
			server.Close()
		}
	}()

	logger.Info("server started", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", zap.Error(err))
		return err
	}
	<-drained

	logger.Info("server stopped, closing database")
	return nil
}

// printAdmin prints the first admin's PIN. It is shown only once.
func printAdmin(admin *model.User, pin string) {
	fmt.Println("Admin account created:")
	fmt.Printf("  Name: %s\n", admin.Name)
	fmt.Printf("  PIN:  %s\n", pin)
	fmt.Println()
	fmt.Println("Save this PIN. It cannot be recovered.")
	fmt.Println()
}
