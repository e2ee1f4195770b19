// Package local runs the adapters behind a plain HTTP server, for developing
// functions without deploying them.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/mux"
	"github.com/pborman/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/a69/fnkit.go/app"
	"github.com/a69/fnkit.go/function"
	"github.com/a69/fnkit.go/transport"
	"github.com/a69/fnkit.go/transport/awslambda"
	"github.com/a69/fnkit.go/transport/gcf"
)

// Server exposes every adapter of an application context over HTTP:
//
//	POST /invoke     raw Lambda payload, any shape awslambda.Handler detects
//	ANY  /http/...   Cloud Functions HTTP request
//	POST /pubsub     Pub/Sub push message, fed to the Pub/Sub event handler
//	GET  /functions  registered function descriptors
//	GET  /metrics    prometheus metrics
type Server struct {
	addr    string
	logger  log.Logger
	handler http.Handler
}

// ServerOption sets an optional parameter for servers.
type ServerOption func(*serverOptions)

type serverOptions struct {
	gatherer prometheus.Gatherer
}

// ServerGatherer sets the registry served on /metrics. Default is
// prometheus.DefaultGatherer.
func ServerGatherer(g prometheus.Gatherer) ServerOption {
	return func(o *serverOptions) { o.gatherer = g }
}

// NewServer returns a server for c listening on ":"+port.
func NewServer(c *app.Context, port string, options ...ServerOption) *Server {
	o := serverOptions{gatherer: prometheus.DefaultGatherer}
	for _, option := range options {
		option(&o)
	}
	return &Server{
		addr:    ":" + port,
		logger:  c.Logger(),
		handler: MakeHandler(c, o.gatherer),
	}
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler { return s.handler }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 3 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		level.Info(s.logger).Log("msg", "starting local server", "addr", "http://localhost"+s.addr)
		err := srv.ListenAndServe()
		var bindErr *net.OpError
		switch {
		case errors.Is(err, http.ErrServerClosed):
			return nil
		case errors.As(err, &bindErr) && strings.Contains(bindErr.Error(), "address already in use"):
			return fmt.Errorf("the port %s is already in use. Set LOCAL_PORT to use a different port", strings.TrimPrefix(s.addr, ":"))
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// MakeHandler mounts the adapters of c on a router.
func MakeHandler(c *app.Context, gatherer prometheus.Gatherer) http.Handler {
	p := c.Pipeline()
	logger := c.Logger()

	r := mux.NewRouter()
	r.Methods(http.MethodGet).Path("/").HandlerFunc(usage)
	r.Methods(http.MethodPost).Path("/invoke").Handler(invokeHandler(awslambda.NewHandler(p, logger)))
	r.PathPrefix("/http").Handler(http.StripPrefix("/http", gcf.NewHTTPHandler(p)))
	r.Methods(http.MethodPost).Path("/pubsub").Handler(pubSubHandler(gcf.NewPubSub(p, logger), logger))
	r.Methods(http.MethodGet).Path("/functions").Handler(functionsHandler(c.Catalog(), c.Definition()))
	r.Methods(http.MethodGet).Path("/metrics").Handler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

func usage(w http.ResponseWriter, r *http.Request) {
	lines := []string{
		"Save the JSON payload to a file - e.g. payload.json",
		fmt.Sprintf("curl -X POST -H \"Content-Type: application/json\" -d @payload.json http://%s/invoke", r.Host),
		fmt.Sprintf("curl -H \"function.definition: <name>\" http://%s/http/", r.Host),
		fmt.Sprintf("curl http://%s/functions", r.Host),
	}
	io.WriteString(w, strings.Join(lines, "\n\n"))
}

func invokeHandler(h *awslambda.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		// Some lambda handlers require a context with deadline
		ctx, cancel := context.WithDeadline(r.Context(), time.Now().Add(1*time.Hour))
		defer cancel()

		resp, err := h.Invoke(ctx, payload)
		if err != nil {
			code, msg := transport.ErrorResponse(err)
			http.Error(w, msg, code)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(resp)
	}
}

// pushRequest is the body Pub/Sub push subscriptions POST.
type pushRequest struct {
	Message      gcf.PubSubMessage `json:"message"`
	Subscription string            `json:"subscription"`
}

func pubSubHandler(h *gcf.EventHandler[gcf.PubSubMessage], logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var push pushRequest
		if err := function.JSON.Unmarshal(body, &push); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		msg := push.Message
		if msg.MessageID == "" {
			msg.MessageID = uuid.New()
		}
		if msg.PublishTime == "" {
			msg.PublishTime = time.Now().UTC().Format(time.RFC3339Nano)
		}
		ctx := transport.ContextWithLogValues(r.Context(), "message_id", msg.MessageID)
		if err := h.Handle(ctx, msg); err != nil {
			level.Debug(logger).Log("msg", "pubsub push failed", "message_id", msg.MessageID, "err", err)
			code, text := transport.ErrorResponse(err)
			http.Error(w, text, code)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type functionInfo struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Input   string `json:"input,omitempty"`
	Output  string `json:"output,omitempty"`
	Message bool   `json:"message"`
	Default bool   `json:"default"`
}

func functionsHandler(catalog *function.Catalog, definition string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var infos []functionInfo
		for _, d := range catalog.Descriptors() {
			info := functionInfo{
				Name:    d.Name,
				Kind:    d.Kind.String(),
				Message: d.AcceptsMessage(),
				Default: d.Name == definition,
			}
			if d.InputType != nil {
				info.Input = d.InputType.String()
			}
			if d.OutputType != nil {
				info.Output = d.OutputType.String()
			}
			infos = append(infos, info)
		}
		b, err := function.JSON.Marshal(infos)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(b)
	}
}
