// Package zipkin traces function invocations with Zipkin spans.
package zipkin

import (
	"context"

	"github.com/openzipkin/zipkin-go"
	"github.com/openzipkin/zipkin-go/model"
	"github.com/openzipkin/zipkin-go/reporter"
	zipkinhttp "github.com/openzipkin/zipkin-go/reporter/http"

	"github.com/a69/fnkit.go/function"
)

// NewTracer returns a tracer for serviceName reporting to the Zipkin
// collector at url. Close the returned reporter on shutdown to flush spans.
func NewTracer(serviceName, url string) (*zipkin.Tracer, reporter.Reporter, error) {
	rep := zipkinhttp.NewReporter(url)
	ep, err := zipkin.NewEndpoint(serviceName, "")
	if err != nil {
		rep.Close()
		return nil, nil, err
	}
	tracer, err := zipkin.NewTracer(rep, zipkin.WithLocalEndpoint(ep))
	if err != nil {
		rep.Close()
		return nil, nil, err
	}
	return tracer, rep, nil
}

// TraceFunction returns a function.Middleware tracing each invocation in a
// span named after the function. A span already in the context becomes the
// parent.
func TraceFunction(tracer *zipkin.Tracer) function.Middleware {
	return func(next function.Invoker) function.Invoker {
		return func(ctx context.Context, inputs []any) ([]any, error) {
			var sc model.SpanContext
			if parentSpan := zipkin.SpanFromContext(ctx); parentSpan != nil {
				sc = parentSpan.Context()
			}
			name := function.NameFromContext(ctx)
			if name == "" {
				name = "function"
			}
			sp := tracer.StartSpan(name, zipkin.Parent(sc))
			defer sp.Finish()

			outputs, err := next(zipkin.NewContext(ctx, sp), inputs)
			if err != nil {
				zipkin.TagError.Set(sp, err.Error())
			}
			return outputs, err
		}
	}
}
