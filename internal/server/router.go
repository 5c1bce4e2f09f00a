// Package server assembles the HTTP and gRPC surfaces of the gateway.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dwikikusuma/storefront-gateway/internal/server/middleware"
	"github.com/gin-gonic/gin"
)

// Routes is implemented by each bounded context's HTTP handler.
type Routes interface {
	Register(rg *gin.RouterGroup)
}

type Options struct {
	Logger      *slog.Logger
	CORSOrigins []string
	// Ready reports whether the gateway can serve traffic. nil means always.
	Ready func(ctx context.Context) error
}

const readyTimeout = 2 * time.Second

// NewRouter mounts every handler at the root and again under /api.
func NewRouter(opts Options, routes ...Routes) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		middleware.Logger(log),
		middleware.CORS(opts.CORSOrigins),
		middleware.ErrorHandler(log),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		if opts.Ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
			defer cancel()
			if err := opts.Ready(ctx); err != nil {
				log.WarnContext(ctx, "readiness check failed", slog.Any("err", err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	api := r.Group("/api")
	for _, rt := range routes {
		rt.Register(&r.RouterGroup)
		rt.Register(api)
	}

	return r
}
