package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iraa22/WHEELWISE-B/api"
	"github.com/iraa22/WHEELWISE-B/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

const swaggerDoc = "wheelwise.swagger.json"

// Handlers are the route groups served by the HTTP API.
type Handlers struct {
	Auth     *api.AuthHandler
	Bookings *api.BookingHandler
	Uploads  *api.UploadHandler
	Sessions api.SessionResolver
}

// NewRouter wires every route. Booking, upload and profile routes require a session.
func NewRouter(cfg config.HTTPConfig, h Handlers, gatherer prometheus.Gatherer, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	if cfg.SwaggerDir != "" {
		router.StaticFile("/docs/"+swaggerDoc, filepath.Join(cfg.SwaggerDir, swaggerDoc))
		router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/docs/"+swaggerDoc))))
	}

	requireSession := api.RequireSession(h.Sessions)

	h.Auth.Register(router.Group("/auth"), router.Group("/auth", requireSession))
	h.Bookings.Register(router.Group("/bookings", requireSession))
	h.Uploads.Register(router.Group("/uploads", requireSession))

	return router
}

// Run serves the router and blocks until ctx is cancelled or the server fails.
func Run(ctx context.Context, cfg config.HTTPConfig, router http.Handler, log *zap.Logger) error {
	httpServer := &http.Server{
		Addr:              cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("address", cfg.Address))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		log.Info("http server stopped")
		return nil
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
