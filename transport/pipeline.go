package transport

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/a69/fnkit.go/function"
)

// Payload is one decoded input value and the headers that came with it.
type Payload struct {
	Body    any
	Headers function.Headers
}

// Request is what a host decoder produces from a native event.
type Request struct {
	// Payloads holds one entry per logical input. HTTP requests and single
	// messages carry one; stream and queue batches carry one per record.
	Payloads []Payload

	// Collection marks the input as a sequence, which disables flattening
	// of single-element results.
	Collection bool

	// Native is the host event itself. Functions declaring the event's own
	// type as their input receive it unchanged.
	Native any

	// Route names the function to invoke. Empty selects the default.
	Route string
}

// Response is what the Pipeline hands to a host encoder.
type Response struct {
	// Body is the flattened result. It is nil when the function declares no
	// output.
	Body any

	// Outputs holds every result with message envelopes removed.
	Outputs []any

	// Headers is the union of the headers of every output message.
	Headers function.Headers

	// HasOutput reports whether the function declares an output at all.
	HasOutput bool

	codec function.Codec
}

// Bytes encodes Body for a response body: text as-is, anything else with
// the pipeline's codec.
func (r Response) Bytes() ([]byte, error) {
	return function.Encode(r.codec, r.Body)
}

// Marshal encodes Body with the pipeline's codec, text included.
func (r Response) Marshal() ([]byte, error) {
	return r.codec.Marshal(r.Body)
}

// ContentType is the media type matching Bytes.
func (r Response) ContentType() string {
	switch r.Body.(type) {
	case nil:
		return ""
	case string:
		return "text/plain; charset=utf-8"
	case []byte:
		return "application/octet-stream"
	}
	return "application/json"
}

// Target is a resolved function ready to be invoked.
type Target struct {
	function.Descriptor
	Invoke function.Invoker
}

// Resolver selects the function for a request. An empty name selects the
// default function.
type Resolver interface {
	Resolve(name string) (Target, error)
}

// ResolverFunc is an adapter to allow the use of ordinary functions as
// Resolver.
type ResolverFunc func(name string) (Target, error)

// Resolve calls f(name).
func (f ResolverFunc) Resolve(name string) (Target, error) { return f(name) }

// Static resolves every request to f.
func Static(f *function.Function) Resolver {
	return ResolverFunc(func(name string) (Target, error) {
		if name != "" && name != f.Name {
			return Target{}, fmt.Errorf("%w: %q", function.ErrNotFound, name)
		}
		return Target{Descriptor: f.Descriptor, Invoke: f.Invoker()}, nil
	})
}

// Pipeline is the host-independent part of every adapter: resolve, wrap
// inputs, invoke, flatten.
type Pipeline struct {
	resolver      Resolver
	routingHeader string
	errorHandler  ErrorHandler
	codec         function.Codec
}

// PipelineOption sets an optional parameter for pipelines.
type PipelineOption func(*Pipeline)

// PipelineRoutingHeader names a header whose value selects the function
// to invoke. Matching is case-insensitive because HTTP hosts disagree on
// header casing.
func PipelineRoutingHeader(name string) PipelineOption {
	return func(p *Pipeline) { p.routingHeader = name }
}

// PipelineErrorHandler is used to handle non-terminal errors. By default,
// non-terminal errors are ignored.
func PipelineErrorHandler(errorHandler ErrorHandler) PipelineOption {
	return func(p *Pipeline) { p.errorHandler = errorHandler }
}

// PipelineCodec sets the codec used to encode results. Default is JSON.
func PipelineCodec(c function.Codec) PipelineOption {
	return func(p *Pipeline) { p.codec = c }
}

// NewPipeline constructs a pipeline around r.
func NewPipeline(r Resolver, options ...PipelineOption) *Pipeline {
	p := &Pipeline{
		resolver:     r,
		errorHandler: ErrorHandlerFunc(func(context.Context, error) {}),
		codec:        function.JSON,
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// Process runs req through the resolved function. The returned context
// carries the function name for downstream encoders and error handlers.
func (p *Pipeline) Process(ctx context.Context, req Request) (context.Context, Response, error) {
	route := req.Route
	if route == "" && p.routingHeader != "" && len(req.Payloads) > 0 {
		route = lookupFold(req.Payloads[0].Headers, p.routingHeader)
	}

	target, err := p.resolver.Resolve(route)
	if err != nil {
		return ctx, Response{}, &Error{Stage: StageResolve, Err: err}
	}
	ctx = function.ContextWithName(ctx, target.Name)

	inputs, input := p.inputs(target, req)
	outputs, err := target.Invoke(ctx, inputs)
	if err != nil {
		return ctx, Response{}, wrap(StageInvoke, err)
	}

	resp := Response{HasOutput: target.ReturnsOutput(), codec: p.codec}
	for _, out := range outputs {
		payload, headers, ok := function.Unwrap(out)
		if ok {
			if resp.Headers == nil {
				resp.Headers = function.Headers{}
			}
			for _, k := range headers.Keys() {
				for _, v := range headers[k] {
					resp.Headers.Add(k, v)
				}
			}
		}
		resp.Outputs = append(resp.Outputs, payload)
	}
	if resp.HasOutput {
		resp.Body = function.Flatten(input, resp.Outputs)
	}
	return ctx, resp, nil
}

func (p *Pipeline) handle(ctx context.Context, err error) {
	p.errorHandler.Handle(ctx, err)
}

// inputs builds the invoker's argument list and the value flattening is
// judged against.
func (p *Pipeline) inputs(target Target, req Request) ([]any, any) {
	if req.Native != nil && target.InputType != nil &&
		target.InputType.Kind() != reflect.Interface &&
		reflect.TypeOf(req.Native).AssignableTo(target.InputType) {
		return []any{req.Native}, req.Native
	}

	envelope := target.AcceptsMessage()
	inputs := make([]any, 0, len(req.Payloads))
	for _, pl := range req.Payloads {
		if !envelope {
			inputs = append(inputs, pl.Body)
			continue
		}
		headers := pl.Headers
		if headers == nil {
			headers = function.Headers{}
		}
		inputs = append(inputs, function.Envelope{Payload: pl.Body, Headers: headers})
	}

	switch {
	case req.Collection:
		return inputs, inputs
	case len(inputs) == 0:
		return inputs, function.Empty
	case len(inputs) == 1:
		return inputs, inputs[0]
	}
	return inputs, inputs
}

func lookupFold(h function.Headers, name string) string {
	if v := h.Get(name); v != "" {
		return v
	}
	for k := range h {
		if strings.EqualFold(k, name) {
			return h.Get(k)
		}
	}
	return ""
}

// JSONBody turns a raw JSON document into a payload: null or nothing is
// Empty, a JSON string is unquoted, anything else stays JSON text for the
// function's input conversion.
func JSONBody(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0, string(trimmed) == "null":
		return function.Empty, nil
	case trimmed[0] == '"':
		var s string
		if err := function.JSON.Unmarshal(trimmed, &s); err != nil {
			return nil, err
		}
		return s, nil
	}
	return string(trimmed), nil
}
