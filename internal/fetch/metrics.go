package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TotalRequests tracks the number of HTTP attempts dispatched by the fetcher.
	TotalRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_requests_total",
		Help: "The total number of HTTP fetch attempts sent.",
	})
	// TotalRequestErrors tracks attempts that resulted in a transient error.
	TotalRequestErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_request_errors_total",
		Help: "The total number of failed HTTP fetch attempts.",
	})
	// TotalRateLimitHits tracks 429 responses.
	TotalRateLimitHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_rate_limit_hits_total",
		Help: "The total number of times the fetcher was rate limited.",
	})
	// TotalForbiddenHits tracks 403 responses.
	TotalForbiddenHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_forbidden_hits_total",
		Help: "The total number of times the fetcher received a forbidden response.",
	})
	// TotalExhausted tracks fetches that ran out of retry budget.
	TotalExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_fetch_exhausted_total",
		Help: "The total number of fetches that failed all retry attempts.",
	})
)
