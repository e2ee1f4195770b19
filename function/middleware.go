package function

import (
	"context"
)

// Invoker runs a function over a sequence of input values and returns the
// complete sequence of output values. It is the building block every
// transport and middleware works against.
type Invoker func(ctx context.Context, inputs []any) (outputs []any, err error)

// Nop is an Invoker that does nothing and returns a nil error.
// Useful for tests.
func Nop(context.Context, []any) ([]any, error) { return nil, nil }

// Middleware is a chainable behavior modifier for invokers.
type Middleware func(Invoker) Invoker

// Chain is a helper function for composing middlewares. Requests will
// traverse them in the order they're declared. That is, the first middleware
// is treated as the outermost middleware.
func Chain(outer Middleware, others ...Middleware) Middleware {
	return func(next Invoker) Invoker {
		for i := len(others) - 1; i >= 0; i-- { // reverse
			next = others[i](next)
		}
		return outer(next)
	}
}

type nameKey struct{}

// ContextWithName returns a context carrying the name of the function being
// invoked, for middlewares that label their output.
func ContextWithName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, nameKey{}, name)
}

// NameFromContext returns the function name stored by ContextWithName.
func NameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(nameKey{}).(string)
	return name
}
