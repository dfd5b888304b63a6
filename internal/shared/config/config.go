package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string

	LLMProvider          string
	LLMTimeout           time.Duration
	GeminiAPIKey         string
	GeminiModel          string
	GeminiResponseSchema bool
	OpenAIAPIKey         string
	OpenAIModel          string
	OpenAIBaseURL        string

	CacheBackend string
	KVURL        string
	DatabaseURL  string
	CacheTTL     time.Duration

	ArchiveStore  string
	LocalStoreDir string
	AWSRegion     string
	S3Bucket      string
	S3Prefix      string
	SSEKMSKeyID   string

	MaxUploadBytes       int64
	AnalyzeRatePerMinute float64
	AnalyzeRateBurst     int
}

const (
	defaultGeminiModel = "gemini-2.5-flash"
	defaultOpenAIModel = "gpt-4o-mini"
	defaultCacheTTL    = 7 * 24 * time.Hour
)

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience. godotenv never
	// overrides variables that are already set, so the first file wins.
	for _, path := range []string{".env.local", ".env", "cmd/.env"} {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				log.Printf("config: failed to load %s: %v", path, err)
			}
		}
	}

	env := normalizeEnv(getEnv("ENV", "dev"))
	cfg := Config{
		Port:            getEnv("PORT", "3001"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),

		LLMProvider:          normalizeProvider(getEnv("LLM_PROVIDER", "gemini")),
		LLMTimeout:           time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", 120)) * time.Second,
		GeminiAPIKey:         getEnv("GEMINI_API_KEY", os.Getenv("API_KEY")),
		GeminiModel:          getEnv("GEMINI_MODEL", defaultGeminiModel),
		GeminiResponseSchema: getEnvBool("GEMINI_RESPONSE_SCHEMA", false),
		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:          getEnv("OPENAI_MODEL", defaultOpenAIModel),
		OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", ""),

		CacheBackend: normalizeCacheBackend(getEnv("CACHE_BACKEND", "auto")),
		KVURL:        getEnv("KV_URL", os.Getenv("REDIS_URL")),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		CacheTTL:     getEnvDuration("CACHE_TTL", defaultCacheTTL),

		ArchiveStore:  normalizeArchiveStore(getEnv("ARCHIVE_STORE", "none")),
		LocalStoreDir: getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:     getEnv("AWS_REGION", ""),
		S3Bucket:      getEnv("S3_BUCKET", ""),
		S3Prefix:      getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:   getEnv("SSE_KMS_KEY_ID", ""),

		MaxUploadBytes:       int64(getEnvInt("MAX_UPLOAD_BYTES", 50<<20)),
		AnalyzeRatePerMinute: getEnvFloat("ANALYZE_RATE_PER_MINUTE", 0),
		AnalyzeRateBurst:     getEnvInt("ANALYZE_RATE_BURST", 5),
	}

	if env == "production" && cfg.CacheBackend == "memory" {
		log.Printf("config: CACHE_BACKEND=memory in production; results are lost on restart")
	}
	return cfg
}

// Model returns the model identifier for the configured provider.
func (c Config) Model() string {
	if c.LLMProvider == "openai" {
		return c.OpenAIModel
	}
	return c.GeminiModel
}

// IsDevLike reports whether the environment tolerates degraded dependencies.
func (c Config) IsDevLike() bool {
	return c.Env == "dev" || c.Env == "local"
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config: %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return val
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config: %s invalid number %q, using %v", key, raw, def)
		return def
	}
	return val
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("config: %s invalid bool %q, using %v", key, raw, def)
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val <= 0 {
		log.Printf("config: %s invalid duration %q, using %s", key, raw, def)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	default:
		return "gemini"
	}
}

func normalizeCacheBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "memory", "redis", "postgres":
		return strings.ToLower(strings.TrimSpace(raw))
	case "kv":
		return "redis"
	default:
		return "auto"
	}
}

func normalizeArchiveStore(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "local":
		return "local"
	default:
		return "none"
	}
}
