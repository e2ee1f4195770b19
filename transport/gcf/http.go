// Package gcf binds the transport pipeline to Google Cloud Functions: HTTP
// functions, legacy background functions and CloudEvent functions.
package gcf

import (
	"context"
	"fmt"
	"net/http"

	"github.com/valyala/bytebufferpool"

	"github.com/a69/fnkit.go/function"
	"github.com/a69/fnkit.go/transport"
)

// HTTPResponse is the rendered result of an HTTP invocation.
type HTTPResponse struct {
	StatusCode  int
	Headers     function.Headers
	ContentType string
	Body        []byte
}

// HTTPServer is the pipeline server behind HTTPHandler.
type HTTPServer = transport.Server[*http.Request, HTTPResponse]

// HTTPHandler serves an HTTP-triggered function.
type HTTPHandler struct {
	server *HTTPServer
}

var _ http.Handler = (*HTTPHandler)(nil)

// NewHTTPHandler returns an http.Handler suitable for functions.HTTP.
func NewHTTPHandler(p *transport.Pipeline, options ...transport.ServerOption[*http.Request, HTTPResponse]) *HTTPHandler {
	options = append([]transport.ServerOption[*http.Request, HTTPResponse]{
		transport.ServerErrorEncoder[*http.Request](EncodeHTTPError),
	}, options...)
	return &HTTPHandler{
		server: transport.NewServer(p, DecodeHTTPRequest, EncodeHTTPResponse, options...),
	}
}

// ServeHTTP implements http.Handler. Output headers are written first, then
// the status, then the body.
func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp, err := h.server.Serve(r.Context(), r)
	if err != nil {
		code, body := transport.ErrorResponse(err)
		http.Error(w, body, code)
		return
	}
	transport.ApplyHeaders(resp.Headers, w.Header().Add)
	if resp.ContentType != "" && w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.StatusCode)
	if len(resp.Body) > 0 {
		w.Write(resp.Body)
	}
}

// DecodeHTTPRequest reads the whole body. Headers are the request headers,
// then query parameters, then path and httpMethod.
func DecodeHTTPRequest(_ context.Context, r *http.Request) (transport.Request, error) {
	var body any = function.Empty
	if r.Body != nil {
		buf := bytebufferpool.Get()
		defer bytebufferpool.Put(buf)
		if _, err := buf.ReadFrom(r.Body); err != nil {
			return transport.Request{}, fmt.Errorf("read body: %w", err)
		}
		if buf.Len() > 0 {
			body = buf.String()
		}
	}

	headers := transport.CollectHeaders(r.Header, r.URL.Query())
	headers.Set("path", r.URL.Path)
	headers.Set("httpMethod", r.Method)
	return transport.Request{
		Payloads: []transport.Payload{{Body: body, Headers: headers}},
	}, nil
}

// EncodeHTTPResponse renders a 200 response. Functions without output get
// no body.
func EncodeHTTPResponse(_ context.Context, resp transport.Response) (HTTPResponse, error) {
	out := HTTPResponse{StatusCode: http.StatusOK, Headers: resp.Headers}
	if !resp.HasOutput {
		return out, nil
	}
	body, err := resp.Bytes()
	if err != nil {
		return HTTPResponse{}, err
	}
	out.Body = body
	out.ContentType = resp.ContentType()
	return out, nil
}

// EncodeHTTPError renders err with the status its transport.Error maps to.
func EncodeHTTPError(_ context.Context, err error) (HTTPResponse, error) {
	code, body := transport.ErrorResponse(err)
	return HTTPResponse{
		StatusCode:  code,
		ContentType: "text/plain; charset=utf-8",
		Body:        []byte(body + "\n"),
	}, nil
}
