package wmservice

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricWindows = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "winsession",
		Subsystem: "service",
		Name:      "windows",
		Help:      "Windows known to the service.",
	})
	metricAgentDeaths = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "winsession",
		Subsystem: "service",
		Name:      "agent_deaths_total",
		Help:      "Windows destroyed because their client went away.",
	})
	metricFocusChanges = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "winsession",
		Subsystem: "service",
		Name:      "focus_changes_total",
		Help:      "Times the focused window changed.",
	})
)
