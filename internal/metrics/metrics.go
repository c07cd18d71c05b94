// Package metrics collects and exposes Prometheus metrics for the care API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the handlers and the engine see. The nil-safe NopRecorder
// exists for tests.
type Recorder interface {
	RecordBooking(outcome string)
	RecordCancellation()
	RecordFeedback()
	RecordBookingLatency(d time.Duration)
}

// Booking outcome label values.
const (
	OutcomeBooked      = "booked"
	OutcomeUnavailable = "unavailable"
	OutcomeInvalid     = "invalid"
	OutcomeError       = "error"
)

type Collector struct {
	bookings       *prometheus.CounterVec
	cancellations  prometheus.Counter
	feedback       prometheus.Counter
	bookingLatency prometheus.Histogram
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "careapi_bookings_total",
			Help: "Booking attempts by outcome.",
		}, []string{"outcome"}),
		cancellations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "careapi_cancellations_total",
			Help: "Appointments cancelled.",
		}),
		feedback: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "careapi_feedback_total",
			Help: "Feedback entries stored.",
		}),
		bookingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "careapi_booking_latency_seconds",
			Help:    "Latency of booking attempts in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.bookings,
		c.cancellations,
		c.feedback,
		c.bookingLatency,
	)

	return c
}

func (c *Collector) RecordBooking(outcome string) {
	c.bookings.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordCancellation() {
	c.cancellations.Inc()
}

func (c *Collector) RecordFeedback() {
	c.feedback.Inc()
}

func (c *Collector) RecordBookingLatency(d time.Duration) {
	c.bookingLatency.Observe(d.Seconds())
}

// NopRecorder discards every observation.
type NopRecorder struct{}

func (NopRecorder) RecordBooking(string)               {}
func (NopRecorder) RecordCancellation()                {}
func (NopRecorder) RecordFeedback()                    {}
func (NopRecorder) RecordBookingLatency(time.Duration) {}

// Handler returns the Prometheus scrape handler.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
