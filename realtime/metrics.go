package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeScopes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sync_active_scopes",
		Help: "Number of scopes currently subscribed to the document store.",
	})

	snapshotsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_snapshots_delivered_total",
		Help: "Snapshots accepted and materialized, by scope kind.",
	}, []string{"scope"})

	staleSnapshotsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_stale_snapshots_dropped_total",
		Help: "Snapshot deliveries dropped by the generation check after scope disposal.",
	})
)
