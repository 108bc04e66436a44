package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/iraa22/WHEELWISE-B/config"
	"github.com/iraa22/WHEELWISE-B/internal/auth"
	"github.com/iraa22/WHEELWISE-B/internal/bootstrap"
	"github.com/iraa22/WHEELWISE-B/internal/cli"
	"github.com/iraa22/WHEELWISE-B/internal/logger"
	"github.com/iraa22/WHEELWISE-B/internal/metrics"
	"github.com/iraa22/WHEELWISE-B/internal/service/session"
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

	zlog, err := logger.New(cfg.Log, "wheelwise-cli")
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

	stateDir, err := cli.DefaultStateDir()
	if err != nil {
		zlog.Fatal("resolve state dir", zap.Error(err))
	}
	tokens := cli.NewFileTokenStore(filepath.Join(stateDir, "session"))

	m := metrics.New(prometheus.NewRegistry())
	client := auth.NewClient(backend.AuthProvider(cfg, zlog, m), logger.NewWatermillAdapter(zlog))
	defer client.Close()

	redirector := cli.NewRedirector()
	gate := session.NewGate(client,
		session.WithRedirect(redirector.Redirect),
		session.WithLogger(zlog))
	if err := gate.Start(ctx); err != nil {
		zlog.Fatal("start session gate", zap.Error(err))
	}
	defer gate.Stop()

	token, err := tokens.Load()
	if err != nil {
		zlog.Warn("read saved session", zap.Error(err))
	}
	if err := client.Init(ctx, token); err != nil {
		zlog.Fatal("restore session", zap.Error(err))
	}
	if _, err := gate.WaitKnown(ctx); err != nil {
		return
	}

	prompter, err := cli.NewReadlinePrompter(filepath.Join(stateDir, "history"))
	if err != nil {
		zlog.Fatal("open terminal", zap.Error(err))
	}
	defer prompter.Close()

	app := cli.NewApp(prompter, os.Stdout, cli.Deps{
		Auth:     client,
		Session:  gate,
		Bookings: backend.BookingService(cfg, zlog, m),
		Uploader: backend.Blobs,
	},
		cli.WithTokenStore(tokens),
		cli.WithRedirector(redirector),
		cli.WithPlaceholderImage(cfg.Booking.PlaceholderImage),
		cli.WithLogger(zlog),
		cli.WithMetrics(m),
	)
	if err := app.Run(ctx); err != nil {
		zlog.Error("terminal client", zap.Error(err))
	}
}
