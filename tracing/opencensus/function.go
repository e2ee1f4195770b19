// Package opencensus traces function invocations with OpenCensus spans,
// which Cloud Trace picks up on Google Cloud.
package opencensus

import (
	"context"

	"go.opencensus.io/trace"

	"github.com/a69/fnkit.go/function"
)

// TraceFunctionDefaultName is the span name used when the invocation context
// carries no function name.
const TraceFunctionDefaultName = "fnkit/function"

// FunctionOptions holds the options for tracing a function.
type FunctionOptions struct {
	// Attributes holds the default attributes for each span created by
	// this middleware.
	Attributes []trace.Attribute

	// GetAttributes is an optional function that can extract trace
	// attributes from the context and add them to the span.
	GetAttributes func(ctx context.Context) []trace.Attribute
}

// FunctionOption allows for functional options to the function tracing
// middleware.
type FunctionOption func(*FunctionOptions)

// WithFunctionAttributes sets the default attributes for the spans created
// by the function tracer.
func WithFunctionAttributes(attrs ...trace.Attribute) FunctionOption {
	return func(o *FunctionOptions) {
		o.Attributes = attrs
	}
}

// WithFunctionConfig sets all the function tracing options at once.
func WithFunctionConfig(options FunctionOptions) FunctionOption {
	return func(o *FunctionOptions) {
		*o = options
	}
}

// TraceFunction returns a function.Middleware that starts a span named after
// the invoked function and marks it with the invocation's outcome.
func TraceFunction(options ...FunctionOption) function.Middleware {
	cfg := &FunctionOptions{}
	for _, o := range options {
		o(cfg)
	}

	return func(next function.Invoker) function.Invoker {
		return func(ctx context.Context, inputs []any) (outputs []any, err error) {
			name := function.NameFromContext(ctx)
			if name == "" {
				name = TraceFunctionDefaultName
			}

			ctx, span := trace.StartSpan(ctx, name)
			defer span.End()
			if len(cfg.Attributes) > 0 {
				span.AddAttributes(cfg.Attributes...)
			}
			if cfg.GetAttributes != nil {
				if attrs := cfg.GetAttributes(ctx); len(attrs) > 0 {
					span.AddAttributes(attrs...)
				}
			}
			span.AddAttributes(trace.Int64Attribute("fnkit.inputs", int64(len(inputs))))

			defer func() {
				if err != nil {
					span.SetStatus(trace.Status{
						Code:    trace.StatusCodeUnknown,
						Message: err.Error(),
					})
					return
				}
				span.AddAttributes(trace.Int64Attribute("fnkit.outputs", int64(len(outputs))))
				span.SetStatus(trace.Status{Code: trace.StatusCodeOK})
			}()
			outputs, err = next(ctx, inputs)
			return
		}
	}
}
