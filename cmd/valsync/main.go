package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/edustack/valsync/internal/api"
	"github.com/edustack/valsync/internal/connectivity"
	"github.com/edustack/valsync/internal/engine"
	"github.com/edustack/valsync/internal/gateway"
	"github.com/edustack/valsync/internal/scheduler"
	"github.com/edustack/valsync/internal/store"
	"github.com/edustack/valsync/internal/util"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for valsync state data
	DefaultStateDir = "/var/lib/valsync"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "valsync.db"
	// DefaultAPIAddr is the default local control API address
	DefaultAPIAddr = "127.0.0.1:8732"
	// DefaultRetrySchedule retries failed requests nightly at 03:00
	DefaultRetrySchedule = "0 3 * * *"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if *flags.gatewayURL == "" {
		slog.Error("Gateway URL not configured; set VALSYNC_GATEWAY_URL or --gateway-url")
		os.Exit(1)
	}

	st, err := openStore(flags)
	if err != nil {
		slog.Error("Failed to open durable store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	gw := gateway.NewHTTPGateway(*flags.gatewayURL, nil)
	probe := connectivity.NewHTTPProbe(*flags.gatewayURL+"/health", *flags.probeInterval)

	eng, err := engine.New(st, gw, probe,
		engine.WithSyncInterval(*flags.syncInterval),
		engine.WithMaxRetries(*flags.maxRetries),
	)
	if err != nil {
		slog.Error("Failed to initialize sync engine", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go probe.Run(ctx)
	go eng.Run(ctx)

	sched := scheduler.NewScheduler()
	defer sched.Stop()
	if *flags.retrySchedule != "" {
		_, err := sched.AddJob("retry-failed", *flags.retrySchedule, func() {
			if err := eng.RetryFailed(); err != nil {
				slog.Error("Scheduled retry of failed requests errored", "error", err)
			}
		})
		if err != nil {
			slog.Error("Invalid retry schedule", "expr", *flags.retrySchedule, "error", err)
			os.Exit(1)
		}
	}

	slog.Info("valsync started", "api_addr", *flags.apiAddr, "gateway_url", *flags.gatewayURL, "db_driver", *flags.dbDriver)
	srv := api.NewServer(eng, probe, *flags.apiAddr)
	if err := srv.Run(ctx); err != nil {
		slog.Error("valsync failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("valsync exited successfully")
}

// Config holds environment configuration
type Config struct {
	StateDir      string
	DbDriver      string
	DbDSN         string
	GatewayURL    string
	APIAddr       string
	SyncInterval  time.Duration
	ProbeInterval time.Duration
	MaxRetries    int
	RetrySchedule string
}

// Flags holds command line flag values
type Flags struct {
	stateDir      *string
	dbDriver      *string
	dbDSN         *string
	gatewayURL    *string
	apiAddr       *string
	syncInterval  *time.Duration
	probeInterval *time.Duration
	maxRetries    *int
	retrySchedule *string
}

// initializeLogger sets up structured logging
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("VALSYNC_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	config := Config{
		StateDir:      os.Getenv("VALSYNC_STATE_DIR"),
		DbDriver:      os.Getenv("VALSYNC_DB_DRIVER"),
		DbDSN:         os.Getenv("VALSYNC_DB_DSN"),
		GatewayURL:    os.Getenv("VALSYNC_GATEWAY_URL"),
		APIAddr:       os.Getenv("VALSYNC_API_ADDR"),
		SyncInterval:  util.ParseDurationEnv("VALSYNC_SYNC_INTERVAL", engine.DefaultSyncInterval),
		ProbeInterval: util.ParseDurationEnv("VALSYNC_PROBE_INTERVAL", connectivity.DefaultProbeInterval),
		MaxRetries:    util.ParseIntEnv("VALSYNC_MAX_RETRIES", engine.DefaultMaxRetries),
		RetrySchedule: os.Getenv("VALSYNC_RETRY_SCHEDULE"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
	}
	if config.DbDriver == "" {
		config.DbDriver = "sqlite3"
	}
	if config.DbDSN == "" && config.DbDriver == "sqlite3" {
		config.DbDSN = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DbDSN)
	}
	if config.APIAddr == "" {
		config.APIAddr = DefaultAPIAddr
	}
	if config.RetrySchedule == "" {
		config.RetrySchedule = DefaultRetrySchedule
	}

	slog.Debug("environment variables loaded",
		"VALSYNC_STATE_DIR", config.StateDir,
		"VALSYNC_DB_DRIVER", config.DbDriver,
		"VALSYNC_DB_DSN_SET", config.DbDSN != "",
		"VALSYNC_GATEWAY_URL_SET", config.GatewayURL != "",
		"VALSYNC_API_ADDR", config.APIAddr,
		"VALSYNC_SYNC_INTERVAL", config.SyncInterval,
		"VALSYNC_MAX_RETRIES", config.MaxRetries,
		"VALSYNC_RETRY_SCHEDULE", config.RetrySchedule)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:      flag.String("state-dir", config.StateDir, "state directory for valsync data (overrides $VALSYNC_STATE_DIR)"),
		dbDriver:      flag.String("db-driver", config.DbDriver, "database driver: sqlite3 or postgres (overrides $VALSYNC_DB_DRIVER)"),
		dbDSN:         flag.String("db-dsn", config.DbDSN, "database DSN (overrides $VALSYNC_DB_DSN)"),
		gatewayURL:    flag.String("gateway-url", config.GatewayURL, "remote validation gateway base URL (overrides $VALSYNC_GATEWAY_URL)"),
		apiAddr:       flag.String("api-addr", config.APIAddr, "local control API address (overrides $VALSYNC_API_ADDR)"),
		syncInterval:  flag.Duration("sync-interval", config.SyncInterval, "periodic drain interval (overrides $VALSYNC_SYNC_INTERVAL)"),
		probeInterval: flag.Duration("probe-interval", config.ProbeInterval, "connectivity probe interval (overrides $VALSYNC_PROBE_INTERVAL)"),
		maxRetries:    flag.Int("max-retries", config.MaxRetries, "delivery attempt ceiling per request (overrides $VALSYNC_MAX_RETRIES)"),
		retrySchedule: flag.String("retry-schedule", config.RetrySchedule, "cron expression for automatic retry of failed requests, empty to disable (overrides $VALSYNC_RETRY_SCHEDULE)"),
	}
	flag.Parse()
	return flags
}

// openStore selects and opens the durable store for the configured driver.
func openStore(flags Flags) (store.Store, error) {
	switch *flags.dbDriver {
	case "postgres":
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN))
	default:
		return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
	}
}
