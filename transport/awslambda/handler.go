package awslambda

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/go-kit/log"

	"github.com/a69/fnkit.go/function"
	"github.com/a69/fnkit.go/transport"
)

var _ lambda.Handler = (*Handler)(nil)

// Handler is a raw Lambda entrypoint. It detects the shape of each payload
// and hands it to the matching server: API Gateway v1 or v2, ALB, Kinesis,
// SQS, or plain JSON for direct invocations.
type Handler struct {
	apigw        *APIGatewayServer
	apigwV2      *APIGatewayV2Server
	alb          *ALBServer
	kinesis      *KinesisServer
	sqs          *SQSServer
	plain        *transport.Server[[]byte, []byte]
	before       []HandlerRequestFunc
	after        []HandlerResponseFunc
	errorEncoder ErrorEncoder
	finalizer    []HandlerFinalizerFunc
	errorHandler transport.ErrorHandler
}

// NewHandler constructs a new handler, which implements
// the AWS lambda.Handler interface.
func NewHandler(p *transport.Pipeline, logger log.Logger, options ...HandlerOption) *Handler {
	plain := transport.NewServer(p, DecodeRawRequest, EncodeRawResponse,
		transport.ServerBefore[[]byte, []byte](PopulateRequestID[[]byte]),
	)
	h := &Handler{
		apigw:        NewAPIGateway(p),
		apigwV2:      NewAPIGatewayV2(p),
		alb:          NewALB(p),
		kinesis:      NewKinesis(p, logger),
		sqs:          NewSQS(p, logger),
		plain:        plain,
		errorEncoder: DefaultErrorEncoder,
		errorHandler: transport.NewLogErrorHandler(log.NewNopLogger()),
	}
	for _, option := range options {
		option(h)
	}
	return h
}

// HandlerOption sets an optional parameter for handlers.
type HandlerOption func(*Handler)

// HandlerBefore functions are executed on the payload byte,
// before the request is decoded.
func HandlerBefore(before ...HandlerRequestFunc) HandlerOption {
	return func(h *Handler) { h.before = append(h.before, before...) }
}

// HandlerAfter functions are only executed after a successful invocation
// but prior to returning a response.
func HandlerAfter(after ...HandlerResponseFunc) HandlerOption {
	return func(h *Handler) { h.after = append(h.after, after...) }
}

// HandlerErrorHandler is used to handle errors raised before a payload
// reaches a server. Errors inside the pipeline go to the pipeline's own
// handler.
func HandlerErrorHandler(errorHandler transport.ErrorHandler) HandlerOption {
	return func(h *Handler) { h.errorHandler = errorHandler }
}

// HandlerErrorEncoder is used to encode errors.
func HandlerErrorEncoder(ee ErrorEncoder) HandlerOption {
	return func(h *Handler) { h.errorEncoder = ee }
}

// HandlerFinalizer sets finalizer which are called at the end of
// request. By default no finalizer is registered.
func HandlerFinalizer(f ...HandlerFinalizerFunc) HandlerOption {
	return func(h *Handler) { h.finalizer = append(h.finalizer, f...) }
}

// Invoke represents implementation of the AWS lambda.Handler interface.
func (h *Handler) Invoke(
	ctx context.Context,
	payload []byte,
) (resp []byte, err error) {
	if len(h.finalizer) > 0 {
		defer func() {
			for _, f := range h.finalizer {
				f(ctx, resp, err)
			}
		}()
	}

	for _, f := range h.before {
		ctx = f(ctx, payload)
	}

	switch detect(payload) {
	case shapeAPIGateway:
		resp, err = serve(ctx, h, h.apigw, payload)
	case shapeAPIGatewayV2:
		resp, err = serve(ctx, h, h.apigwV2, payload)
	case shapeALB:
		resp, err = serve(ctx, h, h.alb, payload)
	case shapeKinesis:
		_, err = serve(ctx, h, h.kinesis, payload)
	case shapeSQS:
		_, err = serve(ctx, h, h.sqs, payload)
	default:
		resp, err = h.plain.Serve(ctx, payload)
	}
	if err != nil {
		return h.errorEncoder(ctx, err)
	}

	for _, f := range h.after {
		ctx = f(ctx, resp)
	}
	return resp, nil
}

type shape int

const (
	shapePlain shape = iota
	shapeAPIGateway
	shapeAPIGatewayV2
	shapeALB
	shapeKinesis
	shapeSQS
)

type envelope struct {
	Records []struct {
		EventSource string `json:"eventSource"`
	} `json:"Records"`
	Version        string `json:"version"`
	HTTPMethod     string `json:"httpMethod"`
	RequestContext *struct {
		ELB  json.RawMessage `json:"elb"`
		HTTP json.RawMessage `json:"http"`
	} `json:"requestContext"`
}

func detect(payload []byte) shape {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return shapePlain
	}
	var p envelope
	if err := function.JSON.Unmarshal(trimmed, &p); err != nil {
		return shapePlain
	}
	if len(p.Records) > 0 {
		switch p.Records[0].EventSource {
		case "aws:kinesis":
			return shapeKinesis
		case "aws:sqs":
			return shapeSQS
		}
		return shapePlain
	}
	if p.RequestContext == nil {
		return shapePlain
	}
	switch {
	case len(p.RequestContext.ELB) > 0:
		return shapeALB
	case p.Version == "2.0" && len(p.RequestContext.HTTP) > 0:
		return shapeAPIGatewayV2
	case p.HTTPMethod != "":
		return shapeAPIGateway
	}
	return shapePlain
}

func serve[EV any, OUT any](ctx context.Context, h *Handler, s *transport.Server[EV, OUT], payload []byte) ([]byte, error) {
	var ev EV
	if err := function.JSON.Unmarshal(payload, &ev); err != nil {
		err = &transport.Error{Stage: transport.StageDecode, Err: err}
		h.errorHandler.Handle(ctx, err)
		return nil, err
	}
	out, err := s.Serve(ctx, ev)
	if err != nil {
		return nil, err
	}
	return function.JSON.Marshal(out)
}

// DecodeRawRequest decodes a direct invocation payload with
// transport.JSONBody.
func DecodeRawRequest(_ context.Context, payload []byte) (transport.Request, error) {
	body, err := transport.JSONBody(payload)
	if err != nil {
		return transport.Request{}, err
	}
	return transport.Request{Payloads: []transport.Payload{{Body: body}}}, nil
}

// EncodeRawResponse renders the result as JSON, which is what direct
// invocations return to the caller. Functions without output return null.
func EncodeRawResponse(_ context.Context, resp transport.Response) ([]byte, error) {
	if !resp.HasOutput {
		return nil, nil
	}
	return resp.Marshal()
}
