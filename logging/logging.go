// Package logging builds the go-kit logger the adapters share and a
// function middleware that logs every invocation.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/a69/fnkit.go/config"
	"github.com/a69/fnkit.go/function"
)

// New returns a logger writing cfg.Format lines to w, filtered at cfg.Level.
// Lines carry ts and caller, plus the host function name and trace id when
// the host provides them.
func New(w io.Writer, cfg config.Log) log.Logger {
	var logger log.Logger
	{
		w = log.NewSyncWriter(w)
		if cfg.Format == "logfmt" {
			logger = log.NewLogfmtLogger(w)
		} else {
			logger = log.NewJSONLogger(w)
		}
		logger = level.NewFilter(logger, levelOption(cfg.Level))
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}
	if name := config.HostFunctionName(); name != "" {
		logger = log.With(logger, "host_function", name)
	}
	if traceID := os.Getenv("_X_AMZN_TRACE_ID"); traceID != "" {
		logger = log.With(logger, "trace_id", traceID)
	}
	return logger
}

func levelOption(l string) level.Option {
	switch l {
	case "debug":
		return level.AllowDebug()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	}
	return level.AllowInfo()
}

// Middleware returns a function middleware that logs the duration of each
// invocation, and the resulting error, if any.
func Middleware(logger log.Logger) function.Middleware {
	return func(next function.Invoker) function.Invoker {
		return func(ctx context.Context, inputs []any) (outputs []any, err error) {
			defer func(begin time.Time) {
				l := level.Debug(logger)
				if err != nil {
					l = level.Warn(logger)
				}
				l.Log(
					"function", function.NameFromContext(ctx),
					"inputs", len(inputs),
					"outputs", len(outputs),
					"took", time.Since(begin),
					"err", err,
				)
			}(time.Now())
			return next(ctx, inputs)
		}
	}
}
