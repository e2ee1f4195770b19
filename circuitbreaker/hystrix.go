package circuitbreaker

import (
	"context"
	"errors"

	"github.com/afex/hystrix-go/hystrix"

	"github.com/a69/fnkit.go/function"
)

// Hystrix returns a function.Middleware that implements the circuit
// breaker pattern using the afex/hystrix-go package.
//
// When using this circuit breaker, please configure your commands separately.
// On timeout the wrapped invoker keeps running in the background and its
// outputs are discarded.
//
// See https://godoc.org/github.com/afex/hystrix-go/hystrix for more
// information.
func Hystrix(commandName string) function.Middleware {
	return func(next function.Invoker) function.Invoker {
		return func(ctx context.Context, inputs []any) ([]any, error) {
			// Buffered so a run outliving the timeout never blocks.
			done := make(chan []any, 1)
			err := hystrix.Do(commandName, func() error {
				outputs, err := next(ctx, inputs)
				if err != nil {
					return err
				}
				done <- outputs
				return nil
			}, nil)
			var cerr hystrix.CircuitError
			if errors.As(err, &cerr) {
				return nil, openError{err}
			}
			if err != nil {
				return nil, err
			}
			return <-done, nil
		}
	}
}
