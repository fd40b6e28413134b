package room

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics with bounded cardinality: per-room labels would let clients mint
// unbounded series, so everything here is global.
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "room_tick_duration_seconds",
		Help:    "Time spent simulating one room tick",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.016, 0.05},
	})

	roomsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rooms_created_total",
		Help: "Rooms created since server start",
	})

	roomsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rooms_closed_total",
		Help: "Rooms force-closed since server start",
	})

	playersJoined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "players_joined_total",
		Help: "Successful room joins",
	})

	playersLeft = promauto.NewCounter(prometheus.CounterOpts{
		Name: "players_left_total",
		Help: "Players removed from rooms",
	})

	activeRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rooms_active",
		Help: "Rooms currently registered",
	})

	activePlayers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "players_active",
		Help: "Players currently mapped to a room",
	})
)

func observeTickDuration(d time.Duration) {
	tickDuration.Observe(d.Seconds())
}
