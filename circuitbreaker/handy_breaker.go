package circuitbreaker

import (
	"context"
	"time"

	"github.com/streadway/handy/breaker"

	"github.com/a69/fnkit.go/function"
)

// HandyBreaker returns a function.Middleware that implements the circuit
// breaker pattern using the streadway/handy/breaker package. Only errors
// returned by the wrapped invoker count against the circuit breaker's error
// count.
//
// See http://godoc.org/github.com/streadway/handy/breaker for more
// information.
func HandyBreaker(cb breaker.Breaker) function.Middleware {
	return func(next function.Invoker) function.Invoker {
		return func(ctx context.Context, inputs []any) (outputs []any, err error) {
			if !cb.Allow() {
				err = openError{breaker.ErrCircuitOpen}
				return
			}

			defer func(begin time.Time) {
				if err == nil {
					cb.Success(time.Since(begin))
				} else {
					cb.Failure(time.Since(begin))
				}
			}(time.Now())

			outputs, err = next(ctx, inputs)
			return
		}
	}
}
