package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iraa22/WHEELWISE-B/internal/domain"
	"github.com/iraa22/WHEELWISE-B/internal/metrics"
	"github.com/iraa22/WHEELWISE-B/internal/storage"
	"go.uber.org/zap"
)

// UploadPrefix is where booking images are stored.
const UploadPrefix = "goals/"

type BlobLister interface {
	List(ctx context.Context, prefix string) ([]storage.Object, error)
}

type BookingLister interface {
	List(ctx context.Context) ([]domain.Booking, error)
}

type OrphanReport struct {
	Checked int
	Orphans []storage.Object
}

// OrphanSweeper finds uploaded images that no booking references. An upload
// whose booking create failed stays in the bucket; the sweeper only reports it.
type OrphanSweeper struct {
	blobs    BlobLister
	bookings BookingLister
	grace    time.Duration
	now      func() time.Time
	log      *zap.Logger
	metrics  *metrics.Metrics
}

type Option func(*OrphanSweeper)

func WithClock(now func() time.Time) Option {
	return func(s *OrphanSweeper) { s.now = now }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *OrphanSweeper) { s.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *OrphanSweeper) { s.metrics = m }
}

// NewOrphanSweeper ignores blobs younger than grace so an upload whose
// booking is still being written is not counted.
func NewOrphanSweeper(blobs BlobLister, bookings BookingLister, grace time.Duration, opts ...Option) *OrphanSweeper {
	s := &OrphanSweeper{
		blobs:    blobs,
		bookings: bookings,
		grace:    grace,
		now:      time.Now,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *OrphanSweeper) Sweep(ctx context.Context) (OrphanReport, error) {
	objects, err := s.blobs.List(ctx, UploadPrefix)
	if err != nil {
		return OrphanReport{}, fmt.Errorf("list uploads: %w", err)
	}
	bookings, err := s.bookings.List(ctx)
	if err != nil {
		return OrphanReport{}, fmt.Errorf("list bookings: %w", err)
	}

	referenced := make(map[string]struct{}, len(bookings))
	for _, b := range bookings {
		if i := strings.LastIndex(b.Image, UploadPrefix); i >= 0 {
			referenced[b.Image[i:]] = struct{}{}
		}
	}

	cutoff := s.now().Add(-s.grace)
	report := OrphanReport{Orphans: []storage.Object{}}
	for _, obj := range objects {
		if obj.LastModified.After(cutoff) {
			continue
		}
		report.Checked++
		if _, ok := referenced[obj.Path]; !ok {
			report.Orphans = append(report.Orphans, obj)
		}
	}

	if s.metrics != nil {
		s.metrics.OrphanedUploads.Set(float64(len(report.Orphans)))
	}
	for _, obj := range report.Orphans {
		s.log.Warn("orphaned upload",
			zap.String("path", obj.Path),
			zap.Int64("size", obj.Size),
			zap.Time("last_modified", obj.LastModified))
	}
	s.log.Info("orphan sweep finished",
		zap.Int("checked", report.Checked),
		zap.Int("orphans", len(report.Orphans)))
	return report, nil
}

// Run sweeps immediately and then on every tick until ctx is done.
func (s *OrphanSweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil {
			s.log.Error("orphan sweep", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
