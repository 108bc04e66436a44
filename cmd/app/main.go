package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/iraa22/WHEELWISE-B/api"
	"github.com/iraa22/WHEELWISE-B/config"
	"github.com/iraa22/WHEELWISE-B/internal/bootstrap"
	"github.com/iraa22/WHEELWISE-B/internal/logger"
	"github.com/iraa22/WHEELWISE-B/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log, "wheelwise-api")
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := bootstrap.OpenBackend(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("open backend", zap.Error(err))
	}
	defer backend.Close(zlog)

	m := metrics.New(prometheus.DefaultRegisterer)
	provider := backend.AuthProvider(cfg, zlog, m)
	bookingService := backend.BookingService(cfg, zlog, m)

	router := bootstrap.NewRouter(cfg.HTTP, bootstrap.Handlers{
		Auth:     api.NewAuthHandler(provider),
		Bookings: api.NewBookingHandler(bookingService),
		Uploads:  api.NewUploadHandler(backend.Blobs, cfg.Booking.MaxUploadBytes, m),
		Sessions: provider,
	}, prometheus.DefaultGatherer, zlog)

	if err := bootstrap.Run(ctx, cfg.HTTP, router, zlog); err != nil {
		zlog.Fatal("server error", zap.Error(err))
	}
}
