package middleware

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"remotecmd/message"
)

// Metrics counts dispatched requests by command and response status and
// observes their duration. The collectors are registered on reg at
// construction; pass prometheus.DefaultRegisterer for process-wide metrics.
func Metrics(reg prometheus.Registerer) Middleware {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "remotecmd",
		Name:      "requests_total",
		Help:      "Requests dispatched, by command and response status.",
	}, []string{"command", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "remotecmd",
		Name:      "request_duration_seconds",
		Help:      "Command dispatch duration.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"command"})
	reg.MustRegister(requests, duration)

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) *message.Response {
			start := time.Now()
			resp := next(ctx, req)
			requests.WithLabelValues(req.Command, resp.Tag.String()).Inc()
			duration.WithLabelValues(req.Command).Observe(time.Since(start).Seconds())
			return resp
		}
	}
}
