package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	foodMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutrition_food_mutations_total",
			Help: "Total number of food mutations by event kind",
		},
		[]string{"kind"},
	)

	realtimeSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nutrition_realtime_subscribers",
			Help: "Current number of websocket subscribers",
		},
	)
)
