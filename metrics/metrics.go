// Package metrics instruments function invocations with prometheus.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/a69/fnkit.go/function"
)

// Instruments are the collectors the middleware records to.
type Instruments struct {
	Invocations *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
}

// NewInstruments creates and registers the invocation counter and duration
// histogram under namespace. Both carry the labels "function" and "success".
func NewInstruments(namespace string, reg prometheus.Registerer) (*Instruments, error) {
	i := &Instruments{
		Invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "function",
			Name:      "invocations_total",
			Help:      "Total number of function invocations.",
		}, []string{"function", "success"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "function",
			Name:      "duration_seconds",
			Help:      "Function invocation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"function", "success"}),
	}
	for _, c := range []prometheus.Collector{i.Invocations, i.Duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register %s metrics: %w", namespace, err)
		}
	}
	return i, nil
}

// Middleware returns a function middleware that counts each invocation and
// records its duration. The "success" label is "true" if no error is
// returned, and "false" otherwise.
func (i *Instruments) Middleware() function.Middleware {
	return func(next function.Invoker) function.Invoker {
		return func(ctx context.Context, inputs []any) (outputs []any, err error) {
			defer func(begin time.Time) {
				labels := prometheus.Labels{
					"function": function.NameFromContext(ctx),
					"success":  fmt.Sprint(err == nil),
				}
				i.Invocations.With(labels).Inc()
				i.Duration.With(labels).Observe(time.Since(begin).Seconds())
			}(time.Now())
			return next(ctx, inputs)
		}
	}
}
