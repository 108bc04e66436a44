package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/iraa22/WHEELWISE-B/config"
	"github.com/iraa22/WHEELWISE-B/internal/auth"
	"github.com/iraa22/WHEELWISE-B/internal/cache"
	"github.com/iraa22/WHEELWISE-B/internal/kafka"
	"github.com/iraa22/WHEELWISE-B/internal/metrics"
	"github.com/iraa22/WHEELWISE-B/internal/repository"
	"github.com/iraa22/WHEELWISE-B/internal/service/booking"
	"github.com/iraa22/WHEELWISE-B/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Backend holds the connections shared by the binaries.
type Backend struct {
	Pool     *pgxpool.Pool
	Bookings repository.BookingRepository
	Accounts repository.AccountRepository
	Profiles *repository.GormProfileRepository
	Sessions *cache.RedisSessionStore
	Producer *kafka.Producer
	Blobs    *storage.BlobStore
}

// OpenBackend connects to Postgres, Redis, Kafka and the blob bucket and
// applies the schema.
func OpenBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Backend, error) {
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := repository.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	profiles, err := repository.OpenProfileRepository(cfg.Database.DSN())
	if err != nil {
		pool.Close()
		return nil, err
	}

	blobs, err := storage.NewBlobStore(ctx, cfg.Storage)
	if err != nil {
		if cerr := profiles.Close(); cerr != nil {
			log.Warn("close users db", zap.Error(cerr))
		}
		pool.Close()
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
	if err := producer.CheckConnection(ctx); err != nil {
		log.Warn("kafka unavailable, booking events will be dropped", zap.Error(err))
	}

	return &Backend{
		Pool:     pool,
		Bookings: repository.NewBookingRepository(pool),
		Accounts: repository.NewAccountRepository(pool),
		Profiles: profiles,
		Sessions: cache.NewRedisSessionStore(cfg.Redis, time.Duration(cfg.Auth.SessionTTLMinutes)*time.Minute),
		Producer: producer,
		Blobs:    blobs,
	}, nil
}

// BookingService builds the booking service over the Postgres store.
func (b *Backend) BookingService(cfg *config.Config, log *zap.Logger, m *metrics.Metrics) *booking.BookingService {
	return booking.NewBookingService(b.Bookings,
		booking.WithEvents(b.Producer, cfg.Kafka.BookingEventsTopic),
		booking.WithPlaceholderImage(cfg.Booking.PlaceholderImage),
		booking.WithLogger(log),
		booking.WithMetrics(m),
	)
}

func (b *Backend) AuthProvider(cfg *config.Config, log *zap.Logger, m *metrics.Metrics) *auth.Provider {
	return auth.NewProvider(b.Accounts, b.Profiles, b.Sessions,
		auth.WithBcryptCost(cfg.Auth.BcryptCost),
		auth.WithLogger(log),
		auth.WithMetrics(m),
	)
}

func (b *Backend) Close(log *zap.Logger) {
	if err := b.Producer.Close(); err != nil {
		log.Warn("close kafka producer", zap.Error(err))
	}
	if err := b.Sessions.Close(); err != nil {
		log.Warn("close redis", zap.Error(err))
	}
	if err := b.Profiles.Close(); err != nil {
		log.Warn("close users db", zap.Error(err))
	}
	b.Pool.Close()
}
