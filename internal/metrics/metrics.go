package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "omok"

// Metrics holds the game server collectors.
type Metrics struct {
	roomsActive        prometheus.Gauge
	roomsCreated       prometheus.Counter
	matchesFinished    *prometheus.CounterVec
	deliveryFailures   prometheus.Counter
	recordWriteFailure prometheus.Counter
}

// New - registers the collectors on registerer.
func New(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		roomsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_active",
			Help:      "Number of rooms currently registered in the directory",
		}),
		roomsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_created_total",
			Help:      "Total number of rooms created",
		}),
		matchesFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_finished_total",
			Help:      "Total number of finished rooms by reason",
		}, []string{"reason"}),
		deliveryFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failures_total",
			Help:      "Total number of messages that could not be queued to a connection",
		}),
		recordWriteFailure: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_write_failures_total",
			Help:      "Total number of win/loss records that failed to persist",
		}),
	}
}

func (that *Metrics) RoomCreated() {
	that.roomsCreated.Inc()
	that.roomsActive.Inc()
}

func (that *Metrics) RoomRemoved() {
	that.roomsActive.Dec()
}

func (that *Metrics) MatchFinished(reason string) {
	that.matchesFinished.WithLabelValues(reason).Inc()
}

func (that *Metrics) DeliveryFailed() {
	that.deliveryFailures.Inc()
}

func (that *Metrics) RecordWriteFailed() {
	that.recordWriteFailure.Inc()
}
