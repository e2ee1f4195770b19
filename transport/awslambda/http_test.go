package awslambda_test

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a69/fnkit.go/function"
	"github.com/a69/fnkit.go/transport"
	"github.com/a69/fnkit.go/transport/awslambda"
)

func pipeline(name string, fn any) *transport.Pipeline {
	return transport.NewPipeline(transport.Static(function.Must(name, fn)))
}

func TestAPIGatewayGetWithoutBody(t *testing.T) {
	srv := awslambda.NewAPIGateway(pipeline("echo", func(s string) string {
		if s == "" {
			return "no body"
		}
		return s
	}))
	resp, err := srv.Serve(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: "/echo"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no body", resp.Body)
	assert.False(t, resp.IsBase64Encoded)
}

func TestAPIGatewayEnvelopeHeaders(t *testing.T) {
	var got function.Headers
	srv := awslambda.NewAPIGateway(pipeline("headers", func(m function.Message[string]) string {
		got = m.Headers
		return strings.ToUpper(m.Payload)
	}))
	resp, err := srv.Serve(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:                      http.MethodPost,
		Path:                            "/headers",
		Headers:                         map[string]string{"x-single": "1"},
		MultiValueHeaders:               map[string][]string{"x-multi": {"a", "b"}},
		MultiValueQueryStringParameters: map[string][]string{"q": {"search"}},
		Body:                            "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "HELLO", resp.Body)
	assert.Equal(t, "1", got.Get("x-single"))
	assert.Equal(t, []string{"a", "b"}, got.Values("x-multi"))
	assert.Equal(t, "search", got.Get("q"))
	assert.Equal(t, "/headers", got.Get("path"))
	assert.Equal(t, http.MethodPost, got.Get("httpMethod"))
}

func TestAPIGatewayOutputHeadersRepeat(t *testing.T) {
	srv := awslambda.NewAPIGateway(pipeline("tag", func(s string) function.Message[string] {
		return function.NewMessage(s).WithHeader("x-tag", "one", "two")
	}))
	resp, err := srv.Serve(context.Background(), events.APIGatewayProxyRequest{Body: "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, resp.MultiValueHeaders["x-tag"])
	assert.Equal(t, "x", resp.Body)
}

func TestAPIGatewayConsumerHasNoBody(t *testing.T) {
	srv := awslambda.NewAPIGateway(pipeline("sink", func(string) {}))
	resp, err := srv.Serve(context.Background(), events.APIGatewayProxyRequest{Body: "x"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Body)
}

func TestAPIGatewayBase64(t *testing.T) {
	srv := awslambda.NewAPIGateway(pipeline("bytes", func(b []byte) []byte { return b }))
	resp, err := srv.Serve(context.Background(), events.APIGatewayProxyRequest{
		Body:            base64.StdEncoding.EncodeToString([]byte{0, 1, 2}),
		IsBase64Encoded: true,
	})
	require.NoError(t, err)
	assert.True(t, resp.IsBase64Encoded)
	assert.Equal(t, "AAEC", resp.Body)

	resp, err = srv.Serve(context.Background(), events.APIGatewayProxyRequest{Body: "%%%", IsBase64Encoded: true})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIGatewayJSON(t *testing.T) {
	type in struct {
		Name string `json:"name"`
	}
	type out struct {
		Greeting string `json:"greeting"`
	}
	srv := awslambda.NewAPIGateway(pipeline("greet", func(i in) out { return out{Greeting: "Hi " + i.Name} }))

	resp, err := srv.Serve(context.Background(), events.APIGatewayProxyRequest{Body: `{"name":"Bob"}`})
	require.NoError(t, err)
	assert.JSONEq(t, `{"greeting":"Hi Bob"}`, resp.Body)
	assert.Equal(t, []string{"application/json"}, resp.MultiValueHeaders["Content-Type"])

	resp, err = srv.Serve(context.Background(), events.APIGatewayProxyRequest{Body: `{"name":`})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIGatewayV2(t *testing.T) {
	var got function.Headers
	srv := awslambda.NewAPIGatewayV2(pipeline("v2", func(m function.Message[string]) string {
		got = m.Headers
		return m.Payload
	}))
	req := events.APIGatewayV2HTTPRequest{
		Version:        "2.0",
		RawPath:        "/v2",
		RawQueryString: "a=1&a=2",
		Cookies:        []string{"c1=x", "c2=y"},
		Headers:        map[string]string{"x-req": "v"},
		Body:           "payload",
	}
	req.RequestContext.HTTP.Method = http.MethodPut
	resp, err := srv.Serve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "payload", resp.Body)
	assert.Equal(t, []string{"1", "2"}, got.Values("a"))
	assert.Equal(t, []string{"c1=x", "c2=y"}, got.Values("cookie"))
	assert.Equal(t, "v", got.Get("x-req"))
	assert.Equal(t, "/v2", got.Get("path"))
	assert.Equal(t, http.MethodPut, got.Get("httpMethod"))
}

func TestALB(t *testing.T) {
	srv := awslambda.NewALB(pipeline("alb", func(s string) function.Message[string] {
		return function.NewMessage(strings.ToUpper(s)).WithHeader("x-out", "1", "2")
	}))

	resp, err := srv.Serve(context.Background(), events.ALBTargetGroupRequest{HTTPMethod: http.MethodPost, Body: "hello"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "200 OK", resp.StatusDescription)
	assert.Equal(t, "HELLO", resp.Body)
	assert.Equal(t, "2", resp.Headers["x-out"])
	assert.Nil(t, resp.MultiValueHeaders)

	resp, err = srv.Serve(context.Background(), events.ALBTargetGroupRequest{
		HTTPMethod:        http.MethodPost,
		MultiValueHeaders: map[string][]string{"accept": {"*/*"}},
		Body:              "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, resp.MultiValueHeaders["x-out"])
	assert.Nil(t, resp.Headers)
}

func TestALBError(t *testing.T) {
	srv := awslambda.NewALB(pipeline("alb", func(struct{ A int }) {}))
	resp, err := srv.Serve(context.Background(), events.ALBTargetGroupRequest{Body: "{"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "400 Bad Request", resp.StatusDescription)
}
