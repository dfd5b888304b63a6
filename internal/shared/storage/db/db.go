package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver

	"rmn-analyst/internal/shared/telemetry"
)

// Profile names the kind of process holding the pool.
type Profile string

const (
	ProfileServer  Profile = "server"
	ProfileLambda  Profile = "lambda"
	ProfileMigrate Profile = "migrate"
)

// Options controls database pool and connectivity behavior.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

const defaultPingTimeout = 5 * time.Second

var profileDefaults = map[Profile]Options{
	// Lambda runs many small containers against one database; keep each pool tiny.
	ProfileLambda: {
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxIdleTime: 30 * time.Second,
		ConnMaxLifetime: 15 * time.Minute,
		PingTimeout:     3 * time.Second,
	},
	ProfileServer: {
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     defaultPingTimeout,
	},
	ProfileMigrate: {
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     defaultPingTimeout,
	},
}

var openDB = sql.Open

// shared is the process-wide pool reused across Lambda invocations.
var shared struct {
	mu sync.Mutex
	db *sql.DB
}

// IsLambdaRuntime reports whether the current process is running in AWS Lambda.
func IsLambdaRuntime() bool {
	return strings.TrimSpace(os.Getenv("AWS_LAMBDA_FUNCTION_NAME")) != ""
}

// RuntimeProfile picks the lambda profile inside Lambda and the server profile elsewhere.
func RuntimeProfile() Profile {
	if IsLambdaRuntime() {
		return ProfileLambda
	}
	return ProfileServer
}

// OptionsFor returns the profile defaults with DB_* env overrides applied.
func OptionsFor(p Profile) Options {
	opts, ok := profileDefaults[p]
	if !ok {
		opts = profileDefaults[ProfileServer]
	}
	if v, ok := readEnvInt("DB_MAX_OPEN_CONNS"); ok {
		opts.MaxOpenConns = v
	}
	if v, ok := readEnvInt("DB_MAX_IDLE_CONNS"); ok {
		opts.MaxIdleConns = v
	}
	if v, ok := readEnvDuration("DB_CONN_MAX_LIFETIME"); ok {
		opts.ConnMaxLifetime = v
	}
	if v, ok := readEnvDuration("DB_CONN_MAX_IDLE_TIME"); ok {
		opts.ConnMaxIdleTime = v
	}
	if v, ok := readEnvDuration("DB_PING_TIMEOUT"); ok {
		opts.PingTimeout = v
	}
	return opts
}

// Open connects for profile p. The lambda profile returns the shared pool, which
// callers must not close; owned reports whether the caller should close it.
func Open(ctx context.Context, databaseURL string, p Profile) (database *sql.DB, owned bool, err error) {
	opts := OptionsFor(p)
	if p == ProfileLambda {
		database, err = Shared(ctx, databaseURL, opts)
		return database, false, err
	}
	database, err = Connect(ctx, databaseURL, opts)
	return database, err == nil, err
}

// Connect opens a pgx-backed *sql.DB and pings it within opts.PingTimeout.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	database, err := openDB("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	configurePool(database, opts)

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := database.PingContext(pingCtx); err != nil {
		database.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	stats := database.Stats()
	telemetry.Info("db.pool.init", map[string]any{
		"max_open": stats.MaxOpenConnections,
		"open":     stats.OpenConnections,
		"idle":     stats.Idle,
	})
	return database, nil
}

// Shared returns the process-wide pool, connecting on first use. A failed
// connect leaves nothing behind so the next invocation tries again.
func Shared(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	shared.mu.Lock()
	defer shared.mu.Unlock()
	if shared.db != nil {
		return shared.db, nil
	}
	database, err := Connect(ctx, databaseURL, opts)
	if err != nil {
		return nil, err
	}
	shared.db = database
	telemetry.Info("db.shared.init", nil)
	return database, nil
}

func resetShared() {
	shared.mu.Lock()
	shared.db = nil
	shared.mu.Unlock()
}

func configurePool(database *sql.DB, opts Options) {
	fallback := profileDefaults[ProfileServer]
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = fallback.MaxOpenConns
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = fallback.MaxIdleConns
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = fallback.ConnMaxLifetime
	}
	database.SetMaxOpenConns(opts.MaxOpenConns)
	database.SetMaxIdleConns(opts.MaxIdleConns)
	database.SetConnMaxLifetime(opts.ConnMaxLifetime)
	if opts.ConnMaxIdleTime > 0 {
		database.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}

func readEnvInt(key string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		telemetry.Warn("db.env.invalid", map[string]any{"key": key, "value": raw})
		return 0, false
	}
	return val, true
}

func readEnvDuration(key string) (time.Duration, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		telemetry.Warn("db.env.invalid", map[string]any{"key": key, "value": raw})
		return 0, false
	}
	return val, true
}
