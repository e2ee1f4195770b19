// Package app builds the application context every adapter invokes through:
// the function catalog, the selected function, and the middleware chain the
// configuration asks for.
//
// A Context is built once, in main, before the host runtime is started.
package app

import (
	"fmt"
	"os"
	"sync"

	"github.com/afex/hystrix-go/hystrix"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/openzipkin/zipkin-go/reporter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/handy/breaker"

	"github.com/a69/fnkit.go/circuitbreaker"
	"github.com/a69/fnkit.go/config"
	"github.com/a69/fnkit.go/function"
	"github.com/a69/fnkit.go/logging"
	"github.com/a69/fnkit.go/metrics"
	"github.com/a69/fnkit.go/ratelimit"
	"github.com/a69/fnkit.go/tracing/opencensus"
	"github.com/a69/fnkit.go/tracing/zipkin"
	"github.com/a69/fnkit.go/transport"
)

// Context resolves function names to invocable targets. It implements
// transport.Resolver.
type Context struct {
	catalog    *function.Catalog
	cfg        config.Config
	logger     log.Logger
	registerer prometheus.Registerer
	extra      []function.Middleware

	definition  string
	instruments *metrics.Instruments
	middleware  function.Middleware
	reporter    reporter.Reporter

	mtx     sync.RWMutex
	targets map[string]transport.Target
}

// Option sets an optional parameter for the application context.
type Option func(*Context)

// WithLogger sets the logger. By default a logger is built from the
// configuration and writes to stderr.
func WithLogger(logger log.Logger) Option {
	return func(c *Context) { c.logger = logger }
}

// WithRegisterer sets the prometheus registerer invocation metrics are
// registered with. Default is prometheus.DefaultRegisterer.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Context) { c.registerer = reg }
}

// WithMiddleware adds middlewares around every function, inside the ones
// built from the configuration.
func WithMiddleware(mw ...function.Middleware) Option {
	return func(c *Context) { c.extra = append(c.extra, mw...) }
}

// New builds the application context for catalog. It fails if the
// configured definition is not registered, or if none is configured and the
// catalog does not hold exactly one function.
func New(catalog *function.Catalog, cfg config.Config, options ...Option) (*Context, error) {
	c := &Context{
		catalog:    catalog,
		cfg:        cfg,
		registerer: prometheus.DefaultRegisterer,
		targets:    map[string]transport.Target{},
	}
	for _, option := range options {
		option(c)
	}
	if c.logger == nil {
		c.logger = logging.New(os.Stderr, cfg.Log)
	}

	def, err := c.selectDefault()
	if err != nil {
		return nil, err
	}
	c.definition = def.Name

	if err := c.buildMiddleware(); err != nil {
		return nil, err
	}
	for _, name := range catalog.Names() {
		if _, err := c.target(name); err != nil {
			return nil, err
		}
	}

	level.Info(c.logger).Log(
		"msg", "application context ready",
		"definition", c.definition,
		"functions", len(c.targets),
		"kind", def.Kind,
	)
	return c, nil
}

func (c *Context) selectDefault() (*function.Function, error) {
	if c.cfg.Definition != "" {
		f, err := c.catalog.Lookup(c.cfg.Definition)
		if err != nil {
			return nil, fmt.Errorf("FUNCTION_DEFINITION: %w", err)
		}
		return f, nil
	}
	f, err := c.catalog.Default()
	if err != nil {
		return nil, fmt.Errorf("FUNCTION_DEFINITION unset: %w", err)
	}
	return f, nil
}

// buildMiddleware composes, outermost first: logging, metrics, tracing,
// rate limiting, then caller-supplied middlewares. Circuit breakers are per
// function and applied innermost.
func (c *Context) buildMiddleware() error {
	instruments, err := metrics.NewInstruments(c.cfg.Metrics.Namespace, c.registerer)
	if err != nil {
		return err
	}
	c.instruments = instruments

	mws := []function.Middleware{instruments.Middleware()}
	if c.cfg.Tracing.OpenCensus {
		mws = append(mws, opencensus.TraceFunction())
	}
	if c.cfg.Tracing.ZipkinURL != "" {
		tracer, rep, err := zipkin.NewTracer(c.cfg.ServiceName, c.cfg.Tracing.ZipkinURL)
		if err != nil {
			return fmt.Errorf("ZIPKIN_URL: %w", err)
		}
		c.reporter = rep
		mws = append(mws, zipkin.TraceFunction(tracer))
	}
	if c.cfg.RateLimit.Limit > 0 {
		mws = append(mws, ratelimit.New(c.cfg.RateLimit.Limit, c.cfg.RateLimit.Burst, c.cfg.RateLimit.Mode))
	}
	mws = append(mws, c.extra...)
	c.middleware = function.Chain(logging.Middleware(c.logger), mws...)
	return nil
}

func (c *Context) breaker(name string) function.Middleware {
	switch c.cfg.Breaker.Kind {
	case "gobreaker":
		return circuitbreaker.Gobreaker(circuitbreaker.NewGobreaker(name, c.cfg.Breaker.Timeout))
	case "hystrix":
		hystrix.ConfigureCommand(name, hystrix.CommandConfig{
			Timeout: int(c.cfg.Breaker.Timeout.Milliseconds()),
		})
		return circuitbreaker.Hystrix(name)
	case "handy":
		return circuitbreaker.HandyBreaker(breaker.NewBreaker(0.05))
	}
	return nil
}

func (c *Context) target(name string) (transport.Target, error) {
	c.mtx.RLock()
	t, ok := c.targets[name]
	c.mtx.RUnlock()
	if ok {
		return t, nil
	}

	f, err := c.catalog.Lookup(name)
	if err != nil {
		return transport.Target{}, err
	}
	invoke := f.Invoker()
	if b := c.breaker(name); b != nil {
		invoke = b(invoke)
	}
	t = transport.Target{Descriptor: f.Descriptor, Invoke: c.middleware(invoke)}

	c.mtx.Lock()
	defer c.mtx.Unlock()
	if existing, ok := c.targets[name]; ok {
		return existing, nil
	}
	c.targets[name] = t
	return t, nil
}

// Resolve implements transport.Resolver. An empty name selects the
// configured definition.
func (c *Context) Resolve(name string) (transport.Target, error) {
	if name == "" {
		name = c.definition
	}
	return c.target(name)
}

// Definition returns the name of the function invoked when a request names
// none.
func (c *Context) Definition() string { return c.definition }

// Catalog returns the catalog the context was built from.
func (c *Context) Catalog() *function.Catalog { return c.catalog }

// Config returns the configuration the context was built from.
func (c *Context) Config() config.Config { return c.cfg }

// Logger returns the application logger.
func (c *Context) Logger() log.Logger { return c.logger }

// Instruments returns the invocation metrics.
func (c *Context) Instruments() *metrics.Instruments { return c.instruments }

// Pipeline returns a pipeline resolving through c, routed by the configured
// header, that logs failed invocations.
func (c *Context) Pipeline() *transport.Pipeline {
	return transport.NewPipeline(c,
		transport.PipelineRoutingHeader(c.cfg.RoutingHeader),
		transport.PipelineErrorHandler(transport.NewLogErrorHandler(c.logger)),
	)
}

// Close flushes trace reporters.
func (c *Context) Close() error {
	if c.reporter != nil {
		return c.reporter.Close()
	}
	return nil
}
