package awslambda

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-lambda-go/lambdacontext"

	"github.com/a69/fnkit.go/function"
	"github.com/a69/fnkit.go/transport"
)

// HandlerRequestFunc may take information from the raw payload and put it
// in a request-scoped context. They run before the event shape is detected.
type HandlerRequestFunc func(ctx context.Context, payload []byte) context.Context

// HandlerResponseFunc may take information from the encoded response of a
// raw invocation.
type HandlerResponseFunc func(ctx context.Context, resp []byte) context.Context

// HandlerFinalizerFunc is executed at the end of every raw invocation.
type HandlerFinalizerFunc func(ctx context.Context, resp []byte, err error)

// ErrorEncoder is responsible for encoding an error of a raw invocation.
type ErrorEncoder func(ctx context.Context, err error) ([]byte, error)

// DefaultErrorEncoder defines the default behavior of encoding an error response,
// where it returns nil, and the error itself.
func DefaultErrorEncoder(ctx context.Context, err error) ([]byte, error) {
	return nil, err
}

// PopulateRequestID adds the Lambda request id, when present, to the
// values logged for this invocation.
func PopulateRequestID[EV any](ctx context.Context, _ EV) context.Context {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return transport.ContextWithLogValues(ctx, "aws_request_id", lc.AwsRequestID)
	}
	return ctx
}

func decodeBody(body string, isBase64 bool) (any, error) {
	if isBase64 {
		b, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, fmt.Errorf("base64 body: %w", err)
		}
		if len(b) == 0 {
			return function.Empty, nil
		}
		return string(b), nil
	}
	if body == "" {
		return function.Empty, nil
	}
	return body, nil
}

// encodeBody renders resp for a proxy-style response. Binary results are
// base64-encoded.
func encodeBody(resp transport.Response) (body string, isBase64 bool, err error) {
	if !resp.HasOutput {
		return "", false, nil
	}
	b, err := resp.Bytes()
	if err != nil {
		return "", false, err
	}
	if _, ok := resp.Body.([]byte); ok {
		return base64.StdEncoding.EncodeToString(b), true, nil
	}
	return string(b), false, nil
}

func responseHeaders(resp transport.Response) map[string][]string {
	h := transport.MultiValue(resp.Headers)
	if ct := resp.ContentType(); ct != "" {
		if h == nil {
			h = map[string][]string{}
		}
		if _, ok := h["Content-Type"]; !ok {
			h["Content-Type"] = []string{ct}
		}
	}
	return h
}
