package daemon

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricSweeps = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "winsession",
		Subsystem: "daemon",
		Name:      "sweeps_total",
		Help:      "Reconciler passes run.",
	})
	metricSwept = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "winsession",
		Subsystem: "daemon",
		Name:      "swept_windows_total",
		Help:      "Windows removed by the reconciler.",
	})
	metricConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "winsession",
		Subsystem: "daemon",
		Name:      "connections",
		Help:      "Open client connections.",
	})
)
