package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	t.Run("Room lifecycle", func(t *testing.T) {
		// Given: fresh collectors on a private registry
		m := New(prometheus.NewRegistry())

		// When: two rooms are created and one is removed
		m.RoomCreated()
		m.RoomCreated()
		m.RoomRemoved()

		// Then: the gauge tracks live rooms and the counter all of them
		assert.InDelta(t, 1, testutil.ToFloat64(m.roomsActive), 0)
		assert.InDelta(t, 2, testutil.ToFloat64(m.roomsCreated), 0)
	})

	t.Run("Finished matches are labelled by reason", func(t *testing.T) {
		m := New(prometheus.NewRegistry())

		m.MatchFinished("WIN")
		m.MatchFinished("WIN")
		m.MatchFinished("FORFEIT")

		assert.InDelta(t, 2, testutil.ToFloat64(m.matchesFinished.WithLabelValues("WIN")), 0)
		assert.InDelta(t, 1, testutil.ToFloat64(m.matchesFinished.WithLabelValues("FORFEIT")), 0)
	})

	t.Run("Exposition", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		m := New(registry)

		m.DeliveryFailed()
		m.RecordWriteFailed()

		expected := `
# HELP omok_delivery_failures_total Total number of messages that could not be queued to a connection
# TYPE omok_delivery_failures_total counter
omok_delivery_failures_total 1
`
		require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "omok_delivery_failures_total"))
		assert.InDelta(t, 1, testutil.ToFloat64(m.recordWriteFailure), 0)
	})

	t.Run("Registering twice on one registry panics", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		New(registry)

		assert.Panics(t, func() { New(registry) })
	})
}
