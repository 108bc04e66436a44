package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/iraa22/WHEELWISE-B/internal/domain"
	"github.com/iraa22/WHEELWISE-B/internal/kafka"
	"github.com/iraa22/WHEELWISE-B/internal/metrics"
	"github.com/iraa22/WHEELWISE-B/internal/repository"
	"go.uber.org/zap"
)

// BookingUseCase is what screens and handlers need from the booking list.
type BookingUseCase interface {
	ListAll(ctx context.Context) ([]domain.Booking, error)
	Get(ctx context.Context, id string) (*domain.Booking, error)
	Create(ctx context.Context, fields domain.BookingFields) (string, error)
	Update(ctx context.Context, id string, patch domain.BookingPatch) error
	Delete(ctx context.Context, id string) error
	Bookings() []domain.Booking
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// BookingService mediates every read and write of bookings and keeps the
// current list for the presentation layer. Only the service mutates the list.
type BookingService struct {
	bookings    repository.BookingRepository
	producer    Producer
	eventsTopic string
	placeholder string
	now         func() time.Time
	log         *zap.Logger
	metrics     *metrics.Metrics

	mu         sync.Mutex
	list       []domain.Booking
	generation uint64
	watchers   map[int]chan []domain.Booking
	nextWatch  int
}

type BookingServiceOption func(*BookingService)

func WithEvents(producer Producer, topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = producer
		s.eventsTopic = topic
	}
}

func WithPlaceholderImage(url string) BookingServiceOption {
	return func(s *BookingService) {
		if url != "" {
			s.placeholder = url
		}
	}
}

func WithLogger(log *zap.Logger) BookingServiceOption {
	return func(s *BookingService) {
		s.log = log
	}
}

func WithMetrics(m *metrics.Metrics) BookingServiceOption {
	return func(s *BookingService) {
		s.metrics = m
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(bookings repository.BookingRepository, opts ...BookingServiceOption) *BookingService {
	service := &BookingService{
		bookings:    bookings,
		placeholder: domain.DefaultImage,
		now:         time.Now,
		log:         zap.NewNop(),
		list:        []domain.Booking{},
		watchers:    make(map[int]chan []domain.Booking),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// ListAll fetches every booking and replaces the current list. On failure the
// list becomes empty and a *domain.FetchError is returned.
func (s *BookingService) ListAll(ctx context.Context) ([]domain.Booking, error) {
	gen := s.beginRefresh()

	start := time.Now()
	list, err := s.bookings.List(ctx)
	s.observe("list", start, err)
	if err != nil {
		s.log.Warn("list bookings", zap.Error(err))
		s.applyRefresh(gen, []domain.Booking{})
		return []domain.Booking{}, &domain.FetchError{Err: err}
	}

	if s.metrics != nil {
		s.metrics.BookingsListed.Set(float64(len(list)))
	}
	s.applyRefresh(gen, list)
	return cloneBookings(list), nil
}

func (s *BookingService) Get(ctx context.Context, id string) (*domain.Booking, error) {
	start := time.Now()
	b, err := s.bookings.GetByID(ctx, id)
	s.observe("get", start, err)
	return b, err
}

// Create validates before touching the store. fields.Image must already be a
// durable URL; an upload that succeeded before a failed create is not rolled back.
func (s *BookingService) Create(ctx context.Context, fields domain.BookingFields) (string, error) {
	if err := fields.Validate(); err != nil {
		s.observe("create", time.Now(), err)
		return "", err
	}

	passengers := fields.Passengers
	if passengers == 0 {
		passengers = 1
	}
	image := strings.TrimSpace(fields.Image)
	if image == "" {
		image = s.placeholder
	}

	booking := &domain.Booking{
		TravelerName: strings.TrimSpace(fields.TravelerName),
		Destination:  strings.TrimSpace(fields.Destination),
		Car:          fields.Car,
		Date:         fields.Date.UTC(),
		Passengers:   passengers,
		Image:        image,
		UserID:       fields.UserID,
		CreatedAt:    s.now().UTC(),
	}

	start := time.Now()
	err := s.bookings.Insert(ctx, booking)
	s.observe("create", start, err)
	if err != nil {
		return "", fmt.Errorf("create booking: %w", err)
	}

	s.log.Info("booking created", zap.String("id", booking.ID))
	s.publish(ctx, kafka.EventBookingCreated, booking)
	s.refreshAfterWrite(ctx)
	return booking.ID, nil
}

// Update applies a partial change. updatedAt is refreshed even for an empty patch.
func (s *BookingService) Update(ctx context.Context, id string, patch domain.BookingPatch) error {
	if err := patch.Validate(); err != nil {
		s.observe("update", time.Now(), err)
		return err
	}
	if patch.TravelerName != nil {
		v := strings.TrimSpace(*patch.TravelerName)
		patch.TravelerName = &v
	}
	if patch.Destination != nil {
		v := strings.TrimSpace(*patch.Destination)
		patch.Destination = &v
	}

	start := time.Now()
	updated, err := s.bookings.Update(ctx, id, patch, s.now().UTC())
	s.observe("update", start, err)
	if err != nil {
		if domain.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("update booking %s: %w", id, err)
	}

	s.log.Info("booking updated", zap.String("id", id))
	s.publish(ctx, kafka.EventBookingUpdated, updated)
	s.refreshAfterWrite(ctx)
	return nil
}

// Delete removes a booking. A missing id is reported as *domain.NotFoundError
// and the list is still refreshed; callers treat that case as already deleted.
func (s *BookingService) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := s.bookings.Delete(ctx, id)
	s.observe("delete", start, err)

	switch {
	case err == nil:
		s.log.Info("booking deleted", zap.String("id", id))
		s.publish(ctx, kafka.EventBookingDeleted, &domain.Booking{ID: id})
	case domain.IsNotFound(err):
		s.log.Info("booking already deleted", zap.String("id", id))
	default:
		return fmt.Errorf("delete booking %s: %w", id, err)
	}

	s.refreshAfterWrite(ctx)
	return err
}

// Bookings returns a snapshot of the current list.
func (s *BookingService) Bookings() []domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneBookings(s.list)
}

// Watch delivers the current list and then every replacement of it. Slow
// readers only see the latest list. The channel closes when ctx ends.
func (s *BookingService) Watch(ctx context.Context) <-chan []domain.Booking {
	ch := make(chan []domain.Booking, 1)

	s.mu.Lock()
	id := s.nextWatch
	s.nextWatch++
	s.watchers[id] = ch
	ch <- cloneBookings(s.list)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, id)
		close(ch)
		s.mu.Unlock()
	}()
	return ch
}

func (s *BookingService) beginRefresh() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.generation
}

// applyRefresh drops results from a refresh that a newer one has superseded.
func (s *BookingService) applyRefresh(gen uint64, list []domain.Booking) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.log.Debug("discard stale booking list", zap.Uint64("generation", gen), zap.Uint64("latest", s.generation))
		return false
	}
	s.list = cloneBookings(list)
	for _, ch := range s.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- cloneBookings(s.list)
	}
	return true
}

// refreshAfterWrite runs after the write has completed; its failure does not
// undo the write.
func (s *BookingService) refreshAfterWrite(ctx context.Context) {
	if _, err := s.ListAll(ctx); err != nil {
		s.log.Warn("refresh after write", zap.Error(err))
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:         eventType,
		BookingID:    booking.ID,
		TravelerName: booking.TravelerName,
		Destination:  booking.Destination,
		Car:          string(booking.Car),
		Passengers:   booking.Passengers,
		UserID:       booking.UserID,
		OccurredAt:   s.now().UTC(),
	}
	if !booking.Date.IsZero() {
		date := booking.Date
		event.Date = &date
	}
	if err := s.producer.Publish(ctx, s.eventsTopic, booking.ID, event); err != nil {
		s.log.Warn("publish booking event", zap.String("type", eventType), zap.String("id", booking.ID), zap.Error(err))
	}
}

func (s *BookingService) observe(op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	outcome := metrics.Outcome(err)
	var notFound *domain.NotFoundError
	var invalid *domain.ValidationError
	switch {
	case errors.As(err, &notFound):
		outcome = "not_found"
	case errors.As(err, &invalid):
		outcome = "invalid"
	}
	s.metrics.BookingOps.WithLabelValues(op, outcome).Inc()
	s.metrics.BookingOpLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func cloneBookings(list []domain.Booking) []domain.Booking {
	out := make([]domain.Booking, len(list))
	copy(out, list)
	return out
}

var _ BookingUseCase = (*BookingService)(nil)
