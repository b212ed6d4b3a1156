package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/gjmugshots/internal/api/handlers"
	"github.com/your-org/gjmugshots/internal/api/ws"
	"github.com/your-org/gjmugshots/internal/auth"
	"github.com/your-org/gjmugshots/internal/cache"
	"github.com/your-org/gjmugshots/internal/queue"
	"github.com/your-org/gjmugshots/internal/storage"
)

type RouterConfig struct {
	// APIKey guards the manual refresh endpoint; empty disables the check.
	APIKey    string
	DB        *storage.PostgresStore
	MinIO     *storage.MinIOStore
	Producer  *queue.Producer
	Hub       *ws.Hub
	Store     *cache.Store
	Refresher *cache.Refresher
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.MinIO, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Records
	recordH := handlers.NewRecordHandler(cfg.DB, cfg.Store, cfg.Refresher)
	r.GET("/list", recordH.List)
	r.GET("/detail/:id", recordH.Detail)
	r.GET("/search", recordH.Search)
	r.POST("/refresh", auth.RequireKey(cfg.APIKey), recordH.Refresh)

	// Static artifacts from object storage
	fileH := handlers.NewFileHandler(cfg.MinIO)
	r.GET("/pdf/:filename", fileH.PDF)
	r.GET("/images/*path", fileH.Image)

	// Live refresh notifications
	if cfg.Hub != nil {
		r.GET("/ws", cfg.Hub.HandleWS)
	}

	return r
}
