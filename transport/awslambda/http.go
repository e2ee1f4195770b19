package awslambda

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/aws/aws-lambda-go/events"

	"github.com/a69/fnkit.go/transport"
)

// APIGatewayServer serves API Gateway REST (v1) proxy events.
type APIGatewayServer = transport.Server[events.APIGatewayProxyRequest, events.APIGatewayProxyResponse]

// NewAPIGateway returns a server for API Gateway REST proxy integrations.
// Its Serve method can be passed to lambda.Start.
func NewAPIGateway(p *transport.Pipeline, options ...transport.ServerOption[events.APIGatewayProxyRequest, events.APIGatewayProxyResponse]) *APIGatewayServer {
	options = append([]transport.ServerOption[events.APIGatewayProxyRequest, events.APIGatewayProxyResponse]{
		transport.ServerBefore[events.APIGatewayProxyRequest, events.APIGatewayProxyResponse](PopulateRequestID[events.APIGatewayProxyRequest]),
		transport.ServerErrorEncoder[events.APIGatewayProxyRequest](EncodeAPIGatewayError),
	}, options...)
	return transport.NewServer(p, DecodeAPIGatewayRequest, EncodeAPIGatewayResponse, options...)
}

// DecodeAPIGatewayRequest collects headers, query parameters, path and
// method from a REST proxy event.
func DecodeAPIGatewayRequest(_ context.Context, req events.APIGatewayProxyRequest) (transport.Request, error) {
	body, err := decodeBody(req.Body, req.IsBase64Encoded)
	if err != nil {
		return transport.Request{}, err
	}
	headers := transport.CollectHeaders(
		req.MultiValueHeaders,
		transport.Single(req.Headers),
		req.MultiValueQueryStringParameters,
		transport.Single(req.QueryStringParameters),
	)
	headers.Set("path", req.Path)
	headers.Set("httpMethod", req.HTTPMethod)
	return transport.Request{
		Payloads: []transport.Payload{{Body: body, Headers: headers}},
		Native:   req,
	}, nil
}

// EncodeAPIGatewayResponse writes a 200 response carrying the function's
// output and output headers.
func EncodeAPIGatewayResponse(_ context.Context, resp transport.Response) (events.APIGatewayProxyResponse, error) {
	body, b64, err := encodeBody(resp)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return events.APIGatewayProxyResponse{
		StatusCode:        http.StatusOK,
		MultiValueHeaders: responseHeaders(resp),
		Body:              body,
		IsBase64Encoded:   b64,
	}, nil
}

// EncodeAPIGatewayError turns err into a response with a matching status.
func EncodeAPIGatewayError(_ context.Context, err error) (events.APIGatewayProxyResponse, error) {
	code, body := transport.ErrorResponse(err)
	return events.APIGatewayProxyResponse{
		StatusCode: code,
		Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
		Body:       body,
	}, nil
}

// APIGatewayV2Server serves API Gateway HTTP API (v2 payload) events.
type APIGatewayV2Server = transport.Server[events.APIGatewayV2HTTPRequest, events.APIGatewayV2HTTPResponse]

// NewAPIGatewayV2 returns a server for HTTP APIs and Lambda function URLs.
func NewAPIGatewayV2(p *transport.Pipeline, options ...transport.ServerOption[events.APIGatewayV2HTTPRequest, events.APIGatewayV2HTTPResponse]) *APIGatewayV2Server {
	options = append([]transport.ServerOption[events.APIGatewayV2HTTPRequest, events.APIGatewayV2HTTPResponse]{
		transport.ServerBefore[events.APIGatewayV2HTTPRequest, events.APIGatewayV2HTTPResponse](PopulateRequestID[events.APIGatewayV2HTTPRequest]),
		transport.ServerErrorEncoder[events.APIGatewayV2HTTPRequest](EncodeAPIGatewayV2Error),
	}, options...)
	return transport.NewServer(p, DecodeAPIGatewayV2Request, EncodeAPIGatewayV2Response, options...)
}

// DecodeAPIGatewayV2Request is DecodeAPIGatewayRequest for the v2 payload.
// Cookies are exposed as repeated cookie headers.
func DecodeAPIGatewayV2Request(_ context.Context, req events.APIGatewayV2HTTPRequest) (transport.Request, error) {
	body, err := decodeBody(req.Body, req.IsBase64Encoded)
	if err != nil {
		return transport.Request{}, err
	}
	query, err := url.ParseQuery(req.RawQueryString)
	if err != nil {
		return transport.Request{}, fmt.Errorf("query string: %w", err)
	}
	var cookies map[string][]string
	if len(req.Cookies) > 0 {
		cookies = map[string][]string{"cookie": req.Cookies}
	}
	headers := transport.CollectHeaders(
		transport.Single(req.Headers),
		cookies,
		query,
		transport.Single(req.QueryStringParameters),
	)
	path := req.RawPath
	if path == "" {
		path = req.RequestContext.HTTP.Path
	}
	headers.Set("path", path)
	headers.Set("httpMethod", req.RequestContext.HTTP.Method)
	return transport.Request{
		Payloads: []transport.Payload{{Body: body, Headers: headers}},
		Native:   req,
	}, nil
}

// EncodeAPIGatewayV2Response is EncodeAPIGatewayResponse for the v2 payload.
func EncodeAPIGatewayV2Response(_ context.Context, resp transport.Response) (events.APIGatewayV2HTTPResponse, error) {
	body, b64, err := encodeBody(resp)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode:        http.StatusOK,
		MultiValueHeaders: responseHeaders(resp),
		Body:              body,
		IsBase64Encoded:   b64,
	}, nil
}

// EncodeAPIGatewayV2Error turns err into a response with a matching status.
func EncodeAPIGatewayV2Error(_ context.Context, err error) (events.APIGatewayV2HTTPResponse, error) {
	code, body := transport.ErrorResponse(err)
	return events.APIGatewayV2HTTPResponse{
		StatusCode: code,
		Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
		Body:       body,
	}, nil
}

// ALBServer serves Application Load Balancer target group events.
type ALBServer = transport.Server[events.ALBTargetGroupRequest, events.ALBTargetGroupResponse]

type albMultiValueKey struct{}

// NewALB returns a server for ALB target groups. Responses use
// multi-value headers exactly when the request did, as ALB requires.
func NewALB(p *transport.Pipeline, options ...transport.ServerOption[events.ALBTargetGroupRequest, events.ALBTargetGroupResponse]) *ALBServer {
	options = append([]transport.ServerOption[events.ALBTargetGroupRequest, events.ALBTargetGroupResponse]{
		transport.ServerBefore[events.ALBTargetGroupRequest, events.ALBTargetGroupResponse](
			PopulateRequestID[events.ALBTargetGroupRequest],
			func(ctx context.Context, req events.ALBTargetGroupRequest) context.Context {
				return context.WithValue(ctx, albMultiValueKey{}, req.MultiValueHeaders != nil)
			},
		),
		transport.ServerErrorEncoder[events.ALBTargetGroupRequest](EncodeALBError),
	}, options...)
	return transport.NewServer(p, DecodeALBRequest, EncodeALBResponse, options...)
}

// DecodeALBRequest is DecodeAPIGatewayRequest for ALB events.
func DecodeALBRequest(_ context.Context, req events.ALBTargetGroupRequest) (transport.Request, error) {
	body, err := decodeBody(req.Body, req.IsBase64Encoded)
	if err != nil {
		return transport.Request{}, err
	}
	headers := transport.CollectHeaders(
		req.MultiValueHeaders,
		transport.Single(req.Headers),
		req.MultiValueQueryStringParameters,
		transport.Single(req.QueryStringParameters),
	)
	headers.Set("path", req.Path)
	headers.Set("httpMethod", req.HTTPMethod)
	return transport.Request{
		Payloads: []transport.Payload{{Body: body, Headers: headers}},
		Native:   req,
	}, nil
}

// EncodeALBResponse writes a "200 OK" response.
func EncodeALBResponse(ctx context.Context, resp transport.Response) (events.ALBTargetGroupResponse, error) {
	body, b64, err := encodeBody(resp)
	if err != nil {
		return events.ALBTargetGroupResponse{}, err
	}
	out := events.ALBTargetGroupResponse{
		StatusCode:        http.StatusOK,
		StatusDescription: statusDescription(http.StatusOK),
		Body:              body,
		IsBase64Encoded:   b64,
	}
	headers := responseHeaders(resp)
	if multi, _ := ctx.Value(albMultiValueKey{}).(bool); multi {
		out.MultiValueHeaders = headers
		return out, nil
	}
	if len(headers) > 0 {
		out.Headers = make(map[string]string, len(headers))
		for k, vs := range headers {
			out.Headers[k] = vs[len(vs)-1]
		}
	}
	return out, nil
}

// EncodeALBError turns err into a response with a matching status.
func EncodeALBError(_ context.Context, err error) (events.ALBTargetGroupResponse, error) {
	code, body := transport.ErrorResponse(err)
	return events.ALBTargetGroupResponse{
		StatusCode:        code,
		StatusDescription: statusDescription(code),
		Headers:           map[string]string{"Content-Type": "text/plain; charset=utf-8"},
		Body:              body,
	}, nil
}

func statusDescription(code int) string {
	return fmt.Sprintf("%d %s", code, http.StatusText(code))
}
