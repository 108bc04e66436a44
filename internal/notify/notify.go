package notify

import (
	"context"
	"time"

	"github.com/iraa22/WHEELWISE-B/internal/kafka"
	"github.com/iraa22/WHEELWISE-B/internal/metrics"
	"go.uber.org/zap"
)

// Sender turns booking events into traveler notices. Delivery is a structured
// log line per event.
type Sender struct {
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewSender(log *zap.Logger, m *metrics.Metrics) *Sender {
	return &Sender{log: log.Named("notify"), metrics: m}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	fields := []zap.Field{
		zap.String("event", event.Type),
		zap.String("booking_id", event.BookingID),
		zap.String("traveler", event.TravelerName),
		zap.String("destination", event.Destination),
		zap.String("car", event.Car),
		zap.Int("passengers", event.Passengers),
		zap.Time("occurred_at", event.OccurredAt),
	}
	if event.Date != nil {
		fields = append(fields, zap.String("date", event.Date.Format(time.RFC3339)))
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", *event.UserID))
	}

	s.log.Info(subject(event.Type), fields...)
	if s.metrics != nil {
		s.metrics.EventsConsumed.WithLabelValues(event.Type).Inc()
	}
	return nil
}

func subject(eventType string) string {
	switch eventType {
	case kafka.EventBookingCreated:
		return "booking confirmed"
	case kafka.EventBookingUpdated:
		return "booking changed"
	case kafka.EventBookingDeleted:
		return "booking cancelled"
	default:
		return "booking event"
	}
}
