package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(sessionsCreatedTotal, sessionsTornDownTotal, sessionsActive) }

var sessionsCreatedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "analysis_sessions_created_total",
		Help: "Total number of analysis sessions created.",
	},
)

var sessionsTornDownTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "analysis_sessions_torn_down_total",
		Help: "Total number of sessions removed, labeled by reason.",
	},
	[]string{"reason"}, // 'expired', 'deleted'
)

var sessionsActive = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "analysis_sessions_active",
		Help: "Number of sessions currently held by the registry.",
	},
)

func IncSessionCreated()          { sessionsCreatedTotal.Inc() }
func IncSessionTornDown(r string) { sessionsTornDownTotal.WithLabelValues(norm(r)).Inc() }
func SetActiveSessions(n int)     { sessionsActive.Set(float64(n)) }
