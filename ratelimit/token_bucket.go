package ratelimit

import (
	"context"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/a69/fnkit.go/function"
)

type limitedError struct{}

func (limitedError) Error() string   { return "rate limit exceeded" }
func (limitedError) StatusCode() int { return http.StatusTooManyRequests }

// ErrLimited is returned in the request path when the rate limiter is
// triggered and the request is rejected. HTTP hosts answer it with 429.
var ErrLimited error = limitedError{}

// Allower dictates whether or not a request is acceptable to run.
// The Limiter from "golang.org/x/time/rate" already implements this interface,
// one is able to use that in NewErroringLimiter without any modifications.
type Allower interface {
	Allow() bool
}

// NewErroringLimiter returns a function.Middleware that acts as a rate
// limiter. Invocations that would exceed the
// maximum request rate are simply rejected with an error.
func NewErroringLimiter(limit Allower) function.Middleware {
	return func(next function.Invoker) function.Invoker {
		return func(ctx context.Context, inputs []any) ([]any, error) {
			if !limit.Allow() {
				return nil, ErrLimited
			}
			return next(ctx, inputs)
		}
	}
}

// Waiter dictates how long a request must be delayed.
// The Limiter from "golang.org/x/time/rate" already implements this interface,
// one is able to use that in NewDelayingLimiter without any modifications.
type Waiter interface {
	Wait(ctx context.Context) error
}

// NewDelayingLimiter returns a function.Middleware that acts as a
// request throttler. Invocations that would
// exceed the maximum request rate are delayed via the Waiter function
func NewDelayingLimiter(limit Waiter) function.Middleware {
	return func(next function.Invoker) function.Invoker {
		return func(ctx context.Context, inputs []any) ([]any, error) {
			if err := limit.Wait(ctx); err != nil {
				return nil, err
			}
			return next(ctx, inputs)
		}
	}
}

// New returns the limiter for mode, "error" or "wait", over a token bucket
// refilled at limit tokens per second holding at most burst tokens.
func New(limit float64, burst int, mode string) function.Middleware {
	l := rate.NewLimiter(rate.Limit(limit), burst)
	if mode == "wait" {
		return NewDelayingLimiter(l)
	}
	return NewErroringLimiter(l)
}

// AllowerFunc is an adapter that lets a function operate as if
// it implements Allower
type AllowerFunc func() bool

// Allow makes the adapter implement Allower
func (f AllowerFunc) Allow() bool {
	return f()
}

// WaiterFunc is an adapter that lets a function operate as if
// it implements Waiter
type WaiterFunc func(ctx context.Context) error

// Wait makes the adapter implement Waiter
func (f WaiterFunc) Wait(ctx context.Context) error {
	return f(ctx)
}
