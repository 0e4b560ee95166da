package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for paginated iteration.
var (
	pagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scholars_pagination_pages_total",
		Help: "Total pages fetched by paginated iterators by endpoint",
	}, []string{"endpoint"})

	itemsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scholars_pagination_items_total",
		Help: "Total items received by paginated iterators by endpoint",
	}, []string{"endpoint"})

	pageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scholars_pagination_page_errors_total",
		Help: "Total failed page fetches by endpoint",
	}, []string{"endpoint"})

	iterationsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scholars_pagination_iterations_finished_total",
		Help: "Total iterations that reached their end by endpoint and reason",
	}, []string{"endpoint", "reason"})
)

// Reasons an iteration stops.
const (
	stopCap     = "cap"
	stopCeiling = "ceiling"
	stopLast    = "last_page"
	stopEmpty   = "empty_page"
)
