// Package http serves the adapter's query surface: quotes, swap instruction
// assembly, pool listing, health and Prometheus metrics.
package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/swapio-fi/clmm-adapter/internal/http/httputil"
	"github.com/swapio-fi/clmm-adapter/internal/scheduler"
)

// NewRouter assembles the gin engine with all routes registered.
func NewRouter(env string, registry *scheduler.Registry) *gin.Engine {
	if env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())

	r.GET("/health", func(c *gin.Context) {
		httputil.Success(c, gin.H{
			"status": "ok",
			"pools":  registry.Len(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	NewQuoteHandler(registry).SetRoutes(r)
	return r
}
