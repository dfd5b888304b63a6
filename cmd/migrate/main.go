package main

// Run database migrations for the postgres cache:
//   go run ./cmd/migrate
// Also delete expired cache rows:
//   go run ./cmd/migrate -purge

import (
	"context"
	"flag"
	"os"

	"rmn-analyst/internal/cache"
	"rmn-analyst/internal/shared/config"
	"rmn-analyst/internal/shared/storage/db"
	"rmn-analyst/internal/shared/telemetry"
)

func main() {
	purge := flag.Bool("purge", false, "delete expired analysis_cache rows after migrating")
	flag.Parse()
	defer telemetry.Sync()

	cfg := config.Load()
	ctx := context.Background()

	sqlDB, _, err := db.Open(ctx, cfg.DatabaseURL, db.ProfileMigrate)
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{"error": err})
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"error": err})
		sqlDB.Close()
		os.Exit(1)
	}
	telemetry.Info("migrate.done", nil)

	if !*purge {
		return
	}
	store := &cache.PostgresStore{DB: sqlDB}
	n, err := store.PurgeExpired(ctx)
	if err != nil {
		telemetry.Error("migrate.purge_failed", map[string]any{"error": err})
		sqlDB.Close()
		os.Exit(1)
	}
	telemetry.Info("migrate.purged", map[string]any{"rows": n})
}
