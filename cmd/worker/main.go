package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iraa22/WHEELWISE-B/config"
	"github.com/iraa22/WHEELWISE-B/internal/bootstrap"
	"github.com/iraa22/WHEELWISE-B/internal/kafka"
	"github.com/iraa22/WHEELWISE-B/internal/logger"
	"github.com/iraa22/WHEELWISE-B/internal/metrics"
	"github.com/iraa22/WHEELWISE-B/internal/notify"
	"github.com/iraa22/WHEELWISE-B/internal/worker"
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

	zlog, err := logger.New(cfg.Log, "wheelwise-worker")
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

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.BookingEventsTopic, zlog)
	defer consumer.Close()

	sender := notify.NewSender(zlog, m)

	go func() {
		if err := consumer.Consume(ctx, sender.Send); err != nil && !errors.Is(err, context.Canceled) {
			zlog.Error("consumer stopped", zap.Error(err))
		}
	}()

	sweeper := worker.NewOrphanSweeper(backend.Blobs, backend.Bookings,
		time.Duration(cfg.Worker.OrphanGraceMinutes)*time.Minute,
		worker.WithLogger(zlog.Named("orphans")),
		worker.WithMetrics(m))

	zlog.Info("worker started")
	sweeper.Run(ctx, time.Duration(cfg.Worker.OrphanSweepMinutes)*time.Minute)
	zlog.Info("worker stopped")
}
