package adapter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricConnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "winsession",
		Subsystem: "adapter",
		Name:      "connects_total",
		Help:      "Successful connections to the window manager service.",
	})
	metricConnectFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "winsession",
		Subsystem: "adapter",
		Name:      "connect_failures_total",
		Help:      "Failed attempts to connect to the window manager service.",
	})
	metricDeaths = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "winsession",
		Subsystem: "adapter",
		Name:      "service_deaths_total",
		Help:      "Times the connected service was found dead.",
	})
	metricRecoveries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "winsession",
		Subsystem: "adapter",
		Name:      "recoveries_total",
		Help:      "Completed session recovery passes.",
	})
	metricState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "winsession",
		Subsystem: "adapter",
		Name:      "connection_state",
		Help:      "0 disconnected, 1 connecting, 2 connected.",
	})
)
