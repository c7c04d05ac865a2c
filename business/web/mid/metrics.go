package mid

import (
	"context"
	"net/http"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/watoukuang/demochain/foundation/web"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "demochain",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Count of requests handled by status.",
	}, []string{"status"})

	panicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "demochain",
		Subsystem: "http",
		Name:      "panics_total",
		Help:      "Count of handler panics that were recovered.",
	})

	goroutines = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "demochain",
		Subsystem: "http",
		Name:      "goroutines",
		Help:      "Number of goroutines seen by the last request.",
	})
)

// Metrics updates program counters.
func Metrics() web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			// Call the next handler.
			err := handler(ctx, w, r)

			status := "success"
			if err != nil {
				status = "error"
			}

			requestsTotal.WithLabelValues(status).Inc()
			goroutines.Set(float64(runtime.NumGoroutine()))

			// Return the error so it can be handled further up the chain.
			return err
		}

		return h
	}

	return m
}
