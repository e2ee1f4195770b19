package transport

import (
	"context"
)

// DecodeRequestFunc extracts a Request from a native host event.
type DecodeRequestFunc[EV any] func(context.Context, EV) (Request, error)

// EncodeResponseFunc renders a Response as the host's native result.
type EncodeResponseFunc[OUT any] func(context.Context, Response) (OUT, error)

// ErrorEncoder is responsible for encoding an error. HTTP hosts turn it
// into a response with a status code; event hosts return it to the host.
type ErrorEncoder[OUT any] func(ctx context.Context, err error) (OUT, error)

// RequestFunc may take information from the native event and put it in a
// request-scoped context. RequestFuncs are executed prior to decoding.
type RequestFunc[EV any] func(context.Context, EV) context.Context

// ResponseFunc may take information from a Response. ResponseFuncs are only
// executed after invoking the function but prior to encoding.
type ResponseFunc func(context.Context, Response) context.Context

// FinalizerFunc is executed at the end of every invocation.
type FinalizerFunc[OUT any] func(ctx context.Context, out OUT, err error)

// Server wraps a Pipeline with the decode and encode steps of one host
// event type.
type Server[EV any, OUT any] struct {
	p            *Pipeline
	dec          DecodeRequestFunc[EV]
	enc          EncodeResponseFunc[OUT]
	before       []RequestFunc[EV]
	after        []ResponseFunc
	errorEncoder ErrorEncoder[OUT]
	finalizer    []FinalizerFunc[OUT]
}

// NewServer constructs a new server. Serve has the signature the hosts'
// runtimes expect, so it can be handed to them directly.
func NewServer[EV any, OUT any](
	p *Pipeline,
	dec DecodeRequestFunc[EV],
	enc EncodeResponseFunc[OUT],
	options ...ServerOption[EV, OUT],
) *Server[EV, OUT] {
	s := &Server[EV, OUT]{
		p:            p,
		dec:          dec,
		enc:          enc,
		errorEncoder: DefaultErrorEncoder[OUT],
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// ServerOption sets an optional parameter for servers.
type ServerOption[EV any, OUT any] func(*Server[EV, OUT])

// ServerBefore functions are executed on the native event before it is
// decoded.
func ServerBefore[EV any, OUT any](before ...RequestFunc[EV]) ServerOption[EV, OUT] {
	return func(s *Server[EV, OUT]) { s.before = append(s.before, before...) }
}

// ServerAfter functions are only executed after invoking the function
// but prior to encoding its result.
func ServerAfter[EV any, OUT any](after ...ResponseFunc) ServerOption[EV, OUT] {
	return func(s *Server[EV, OUT]) { s.after = append(s.after, after...) }
}

// ServerErrorEncoder is used to encode errors.
func ServerErrorEncoder[EV any, OUT any](ee ErrorEncoder[OUT]) ServerOption[EV, OUT] {
	return func(s *Server[EV, OUT]) { s.errorEncoder = ee }
}

// ServerFinalizer sets finalizers which are called at the end of each
// invocation. By default no finalizer is registered.
func ServerFinalizer[EV any, OUT any](f ...FinalizerFunc[OUT]) ServerOption[EV, OUT] {
	return func(s *Server[EV, OUT]) { s.finalizer = append(s.finalizer, f...) }
}

// DefaultErrorEncoder returns the zero OUT and the error itself.
func DefaultErrorEncoder[OUT any](_ context.Context, err error) (OUT, error) {
	var zero OUT
	return zero, err
}

// Serve runs one invocation: decode, invoke, encode.
func (s *Server[EV, OUT]) Serve(ctx context.Context, ev EV) (out OUT, err error) {
	if len(s.finalizer) > 0 {
		defer func() {
			for _, f := range s.finalizer {
				f(ctx, out, err)
			}
		}()
	}

	for _, f := range s.before {
		ctx = f(ctx, ev)
	}

	req, err := s.dec(ctx, ev)
	if err != nil {
		err = wrap(StageDecode, err)
		s.p.handle(ctx, err)
		return s.errorEncoder(ctx, err)
	}

	ctx, resp, err := s.p.Process(ctx, req)
	if err != nil {
		s.p.handle(ctx, err)
		return s.errorEncoder(ctx, err)
	}

	for _, f := range s.after {
		ctx = f(ctx, resp)
	}

	if out, err = s.enc(ctx, resp); err != nil {
		err = wrap(StageEncode, err)
		s.p.handle(ctx, err)
		return s.errorEncoder(ctx, err)
	}
	return out, nil
}
