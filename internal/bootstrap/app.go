package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"rmn-analyst/internal/cache"
	"rmn-analyst/internal/llm"
	"rmn-analyst/internal/llm/gemini"
	openai "rmn-analyst/internal/llm/openai"
	"rmn-analyst/internal/report"
	"rmn-analyst/internal/shared/config"
	"rmn-analyst/internal/shared/server"
	"rmn-analyst/internal/shared/server/middleware"
	"rmn-analyst/internal/shared/storage/db"
	"rmn-analyst/internal/shared/storage/object"
	localstore "rmn-analyst/internal/shared/storage/object/local"
	s3store "rmn-analyst/internal/shared/storage/object/s3"
	"rmn-analyst/internal/shared/telemetry"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config  config.Config
	Router  *gin.Engine
	DB      *sql.DB
	Cache   cache.Store
	LLM     llm.Client
	Archive object.ObjectStore
	Service *report.Service
	Handler *report.Handler

	closers []io.Closer
}

// Build prepares shared dependencies and registers routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	app := &App{Config: cfg}

	store, err := app.buildCache(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Cache = store

	client, err := NewLLMClient(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.LLM = client

	archive, err := buildArchive(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Archive = archive

	app.Service = report.NewService(app.LLM, app.Cache, cfg.CacheTTL)
	app.Handler = report.NewHandler(app.Service, app.Archive)
	if cfg.AnalyzeRatePerMinute > 0 {
		rule := middleware.PerMinute(cfg.AnalyzeRatePerMinute, cfg.AnalyzeRateBurst)
		app.Handler.AnalyzeMiddleware = append(app.Handler.AnalyzeMiddleware, middleware.RateLimit("analyze", rule, nil))
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:       cfg,
		CacheBackend: app.Cache.Name(),
		Routes:       []server.RouteRegistrar{app.Handler},
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":      cfg.Env,
		"cache":    app.Cache.Name(),
		"provider": cfg.LLMProvider,
		"model":    app.LLM.Model(),
		"archive":  cfg.ArchiveStore,
	})
	return app, nil
}

// Close releases connections opened by Build. The shared Lambda pool is left open.
func (a *App) Close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
	a.closers = nil
}

func (a *App) buildCache(ctx context.Context) (cache.Store, error) {
	cfg := a.Config
	backend := resolveCacheBackend(cfg)

	var (
		store cache.Store
		err   error
	)
	switch backend {
	case "redis":
		store, err = a.buildRedis(ctx, cfg.KVURL)
	case "postgres":
		store, err = a.buildPostgres(ctx, cfg.DatabaseURL)
	default:
		return cache.NewMemoryStore(nil), nil
	}
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.cache.fallback", map[string]any{
				"backend": backend,
				"error":   err,
			})
			return cache.NewMemoryStore(nil), nil
		}
		return nil, fmt.Errorf("cache backend %s: %w", backend, err)
	}
	return store, nil
}

// resolveCacheBackend turns CACHE_BACKEND=auto into a concrete backend name.
func resolveCacheBackend(cfg config.Config) string {
	switch cfg.CacheBackend {
	case "memory", "redis", "postgres":
		return cfg.CacheBackend
	}
	if strings.TrimSpace(cfg.KVURL) != "" {
		return "redis"
	}
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		return "postgres"
	}
	return "memory"
}

func (a *App) buildRedis(ctx context.Context, url string) (cache.Store, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("KV_URL or REDIS_URL is required")
	}
	client, err := cache.DialRedis(ctx, url)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client)
	return cache.NewRedisStore(client), nil
}

func (a *App) buildPostgres(ctx context.Context, databaseURL string) (cache.Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	sqlDB, owned, err := db.Open(ctx, databaseURL, db.RuntimeProfile())
	if err != nil {
		return nil, err
	}
	if owned {
		a.closers = append(a.closers, sqlDB)
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	a.DB = sqlDB
	return &cache.PostgresStore{DB: sqlDB}, nil
}

// NewLLMClient builds the configured provider wrapped in the call timeout.
// In dev-like environments a missing key yields a client that fails per call.
func NewLLMClient(ctx context.Context, cfg config.Config) (llm.Client, error) {
	var (
		client llm.Client
		err    error
	)
	switch cfg.LLMProvider {
	case "openai":
		client, err = openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	default:
		client, err = gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, gemini.Options{
			ResponseSchema: cfg.GeminiResponseSchema,
		})
	}
	if err != nil {
		if !cfg.IsDevLike() {
			return nil, fmt.Errorf("llm provider %s: %w", cfg.LLMProvider, err)
		}
		// Local runs can still serve health checks and cached results.
		telemetry.Warn("bootstrap.llm.unconfigured", map[string]any{
			"provider": cfg.LLMProvider,
			"error":    err,
		})
		client = unconfiguredClient{model: cfg.Model(), err: err}
	}
	return llm.WithTimeout(client, cfg.LLMTimeout), nil
}

// unconfiguredClient fails every call with the reason the provider could not be built.
type unconfiguredClient struct {
	model string
	err   error
}

func (u unconfiguredClient) Generate(ctx context.Context, prompt string) (string, error) {
	return "", fmt.Errorf("llm client not configured: %w", u.err)
}

func (u unconfiguredClient) Model() string { return u.model }

func buildArchive(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ArchiveStore {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, errors.New("ARCHIVE_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "local":
		return localstore.New(cfg.LocalStoreDir), nil
	default:
		return nil, nil
	}
}
