package circuitbreaker

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/a69/fnkit.go/function"
)

// Gobreaker returns a function.Middleware that implements the circuit
// breaker pattern using the sony/gobreaker package. Only errors returned by
// the wrapped invoker count against the circuit breaker's error count.
//
// See http://godoc.org/github.com/sony/gobreaker for more information.
func Gobreaker(cb *gobreaker.CircuitBreaker) function.Middleware {
	return func(next function.Invoker) function.Invoker {
		return func(ctx context.Context, inputs []any) ([]any, error) {
			outputs, err := cb.Execute(func() (interface{}, error) { return next(ctx, inputs) })
			if err != nil {
				if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
					return nil, openError{err}
				}
				return nil, err
			}
			return outputs.([]any), nil
		}
	}
}

// NewGobreaker returns a gobreaker circuit breaker for the named function that
// opens after five consecutive failures and stays open for timeout.
func NewGobreaker(name string, timeout time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}
