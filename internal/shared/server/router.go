package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rmn-analyst/internal/shared/config"
	"rmn-analyst/internal/shared/metrics"
	"rmn-analyst/internal/shared/server/middleware"
	"rmn-analyst/internal/shared/server/respond"
)

// RouteRegistrar attaches a feature's handlers to the /api group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps carries what the router needs from bootstrap.
type RouterDeps struct {
	Config       config.Config
	CacheBackend string
	Routes       []RouteRegistrar
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.BodyLimit(cfg.MaxUploadBytes),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Server is running",
			"cache":   deps.CacheBackend,
		})
	})
	if cfg.IsDevLike() {
		api.POST("/test", echo)
	}
	for _, reg := range deps.Routes {
		if reg != nil {
			reg.RegisterRoutes(api)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "Not found", nil)
	})

	return r
}

func echo(c *gin.Context) {
	var body any
	if err := c.ShouldBindJSON(&body); err != nil {
		body = nil
	}
	respond.JSON(c, http.StatusOK, gin.H{
		"message": "Test successful",
		"body":    body,
	})
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":3001"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
