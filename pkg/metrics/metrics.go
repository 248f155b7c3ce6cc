package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LeadsIngested counts leads created from dropped files.
	LeadsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadrouter_leads_ingested_total",
		Help: "Total number of leads ingested from files",
	})

	// LeadsAssigned counts completed assignments by method and algorithm.
	LeadsAssigned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadrouter_leads_assigned_total",
		Help: "Total number of leads assigned to agents",
	}, []string{"method", "algorithm"})

	// AssignmentOutcomes counts every automatic attempt by its outcome.
	AssignmentOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadrouter_assignment_outcomes_total",
		Help: "Automatic assignment attempts by outcome",
	}, []string{"outcome"})

	// LeadsRequeued counts leads released back to the pool.
	LeadsRequeued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadrouter_leads_requeued_total",
		Help: "Total number of leads requeued",
	})

	// NotificationsPublished counts events fanned out to subscribers.
	NotificationsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadrouter_notifications_published_total",
		Help: "Total number of events published to subscribers",
	})

	// QueueDepth tracks the queued lead backlog, refreshed by the cron tick.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leadrouter_queue_depth",
		Help: "Leads currently parked in the queued state",
	})

	// SSESubscribers tracks open event stream connections.
	SSESubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leadrouter_sse_subscribers",
		Help: "Currently open event stream connections",
	})

	// AgentsOnline tracks agents currently flagged online.
	AgentsOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leadrouter_agents_online",
		Help: "Agents currently flagged online",
	})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "leadrouter_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

// HTTPMetrics records request latency per route. Uses the echo route
// pattern, not the raw URL, to keep cardinality bounded.
func HTTPMetrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			httpDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
				strconv.Itoa(status),
			).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
