package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors shared by the services.
type Metrics struct {
	BookingOps       *prometheus.CounterVec
	BookingOpLatency *prometheus.HistogramVec
	BookingsListed   prometheus.Gauge
	Uploads          *prometheus.CounterVec
	AuthAttempts     *prometheus.CounterVec
	OrphanedUploads  prometheus.Gauge
	EventsConsumed   *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in binaries
// and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BookingOps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wheelwise_booking_operations_total",
			Help: "Booking repository operations by kind and outcome",
		}, []string{"op", "outcome"}),

		BookingOpLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wheelwise_booking_operation_duration_seconds",
			Help:    "Duration of booking repository operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),

		BookingsListed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wheelwise_bookings_listed",
			Help: "Number of bookings returned by the last successful list",
		}),

		Uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wheelwise_image_uploads_total",
			Help: "Image uploads by outcome",
		}, []string{"outcome"}),

		AuthAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wheelwise_auth_attempts_total",
			Help: "Sign-in and sign-up attempts by kind and outcome",
		}, []string{"kind", "outcome"}),

		OrphanedUploads: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wheelwise_orphaned_uploads",
			Help: "Uploaded images not referenced by any booking at the last sweep",
		}),

		EventsConsumed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wheelwise_booking_events_consumed_total",
			Help: "Booking events handled by the worker by type",
		}, []string{"type"}),
	}
}

// Outcome maps an error to the label used on outcome counters.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
