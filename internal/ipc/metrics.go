package ipc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "winsession",
		Subsystem: "ipc",
		Name:      "requests_total",
		Help:      "Requests sent through interface proxies.",
	}, []string{"interface", "message"})
	metricFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "winsession",
		Subsystem: "ipc",
		Name:      "request_failures_total",
		Help:      "Requests that failed in transport.",
	}, []string{"interface", "message"})
	metricPeerDeaths = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "winsession",
		Subsystem: "ipc",
		Name:      "peer_dead_total",
		Help:      "Requests that found their peer dead.",
	}, []string{"interface"})
	metricRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "winsession",
		Subsystem: "ipc",
		Name:      "stub_rejected_total",
		Help:      "Incoming requests rejected by a stub before dispatch.",
	}, []string{"interface", "status"})
	metricConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "winsession",
		Subsystem: "ipc",
		Name:      "connections_active",
		Help:      "Open socket connections.",
	})
)

func rejected(descriptor string, status Status) Status {
	metricRejected.WithLabelValues(descriptor, status.String()).Inc()
	return status
}
