package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stefan-vatov/nightwatch-deck/internal/config"
	"github.com/stefan-vatov/nightwatch-deck/internal/security"
	"github.com/stefan-vatov/nightwatch-deck/internal/services"
)

// NewRouter wires the full HTTP surface: the room websocket path, metrics
// and health endpoints, and a static-asset fallback for everything else.
func NewRouter(cfg *config.Config, manager *services.Manager, metrics *services.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	ws := NewWSHandler(manager, security.NewOriginValidator(cfg.AllowedOrigins))
	r.Any("/ws/*room", ws.HandleWebSocket)

	r.GET("/metrics", HandleMetrics(metrics))
	r.GET("/healthz", HandleHealth(metrics))

	r.NoRoute(staticFallback(cfg.StaticDir))
	return r
}

// staticFallback serves assets from dir when configured, mirroring the
// gateway contract: anything outside the websocket path falls through to
// static content or a plain not-found.
func staticFallback(dir string) gin.HandlerFunc {
	if dir == "" {
		return func(c *gin.Context) {
			c.String(http.StatusNotFound, "Not found")
		}
	}

	fs := http.FileServer(http.Dir(dir))
	return func(c *gin.Context) {
		fs.ServeHTTP(c.Writer, c.Request)
	}
}
