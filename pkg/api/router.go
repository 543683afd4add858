package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/urmzd/tuyamon/pkg/api/handlers"
	"github.com/urmzd/tuyamon/pkg/db"
	"github.com/urmzd/tuyamon/pkg/device"
	"github.com/urmzd/tuyamon/pkg/device/schema"
	"github.com/urmzd/tuyamon/pkg/dps"
)

// Deps are the services the API serves from.
type Deps struct {
	Catalog   *device.Catalog
	Statuses  db.StatusStore
	DB        handlers.Pinger
	Validator *schema.Validator // nil accepts any payload shape
	Format    dps.Format        // Time zone and contracted amps for rendered lines
}

// Router holds the Gin engine and dependencies
type Router struct {
	engine *gin.Engine
	deps   Deps
}

// NewRouter creates a new API router
func NewRouter(deps Deps) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	SetupMiddleware(engine)

	router := &Router{engine: engine, deps: deps}
	router.setupRoutes()
	return router
}

func (r *Router) setupRoutes() {
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	healthHandler := handlers.NewHealthHandler(r.deps.DB, r.deps.Catalog)
	r.engine.GET("/health", healthHandler.Health)

	v1 := r.engine.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Health)

		devicesHandler := handlers.NewDevicesHandler(r.deps.Catalog)
		statusHandler := handlers.NewStatusHandler(r.deps.Catalog, r.deps.Statuses, r.deps.Format)
		decodeHandler := handlers.NewDecodeHandler(r.deps.Catalog, r.deps.Validator, r.deps.Format)

		devices := v1.Group("/devices")
		{
			devices.GET("", devicesHandler.ListDevices)
			devices.GET("/:name", devicesHandler.GetDevice)
			devices.GET("/:name/status", statusHandler.LatestStatus)
			devices.GET("/:name/history", statusHandler.History)
			devices.POST("/:name/decode", decodeHandler.DecodeStatus)
		}

		v1.POST("/phase/decode", decodeHandler.DecodePhase)
	}
}

// Handler exposes the engine for tests and custom servers.
func (r *Router) Handler() http.Handler {
	return r.engine
}

// Run starts the HTTP server
func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}
