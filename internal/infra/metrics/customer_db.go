package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(customerQueriesTotal) }

var customerQueriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "customer_queries_total",
		Help: "Queries executed against the customer database, labeled by outcome.",
	},
	[]string{"outcome"}, // 'ok', 'failed', 'rejected'
)

func IncCustomerQuery(outcome string) {
	customerQueriesTotal.WithLabelValues(norm(outcome)).Inc()
}
