package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medsearch",
			Name:      "search_requests_total",
			Help:      "Search requests stored, by destination queue",
		},
		[]string{"destination"}, // "immediate" / "pending"
	)

	UsersCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "medsearch",
			Name:      "users_created_total",
			Help:      "Users created on first contact",
		},
	)

	SessionVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medsearch",
			Name:      "session_verifications_total",
			Help:      "Session token verifications by result",
		},
		[]string{"result"}, // "verified" / "rejected"
	)

	SearchRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medsearch",
			Name:      "search_rejections_total",
			Help:      "Search requests rejected before storage, by reason",
		},
		[]string{"reason"}, // "validation" / "unauthorized" / "rate_limited" / "internal"
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers the search pipeline metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(UsersCreatedTotal)
	prometheus.MustRegister(SessionVerificationsTotal)
	prometheus.MustRegister(SearchRejectionsTotal)
	searchMetricsRegistered = true
}
