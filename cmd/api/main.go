package main

import (
	"os"

	"rmn-analyst/internal/bootstrap"
	"rmn-analyst/internal/shared/config"
	"rmn-analyst/internal/shared/server"
	"rmn-analyst/internal/shared/telemetry"
)

func main() {
	defer telemetry.Sync()

	cfg := config.Load()
	app, err := bootstrap.Build(cfg)
	if err != nil {
		telemetry.Error("bootstrap.failed", map[string]any{"error": err})
		os.Exit(1)
	}
	defer app.Close()

	addr := server.Addr(cfg.Port)
	telemetry.Info("server.start", map[string]any{"addr": addr, "env": cfg.Env})

	if err := app.Router.Run(addr); err != nil {
		telemetry.Error("server.error", map[string]any{"error": err})
		os.Exit(1)
	}
}
