package transport

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/a69/fnkit.go/function"
)

// DroppedResultMessage prefixes the log line written for results of event
// invocations, which have no response channel.
const DroppedResultMessage = "Dropping background function result: "

// Dropped is the result type of event hosts.
type Dropped = struct{}

// EncodeDropped returns an EncodeResponseFunc for event hosts. It logs one
// line with the JSON-encoded result when the function produced any output,
// and nothing otherwise.
func EncodeDropped(logger log.Logger) EncodeResponseFunc[Dropped] {
	return func(ctx context.Context, resp Response) (Dropped, error) {
		if !resp.HasOutput || len(resp.Outputs) == 0 {
			return Dropped{}, nil
		}
		b, err := resp.Marshal()
		if err != nil {
			return Dropped{}, err
		}
		l := log.With(logger, "function", function.NameFromContext(ctx))
		if kv := LogValues(ctx); len(kv) > 0 {
			l = log.With(l, kv...)
		}
		level.Info(l).Log("msg", DroppedResultMessage+string(b))
		return Dropped{}, nil
	}
}

type logValuesKey struct{}

// ContextWithLogValues returns a context carrying keyvals, which are added
// to every line the transport logs for this invocation.
func ContextWithLogValues(ctx context.Context, keyvals ...interface{}) context.Context {
	prev := LogValues(ctx)
	kv := make([]interface{}, 0, len(prev)+len(keyvals))
	kv = append(kv, prev...)
	kv = append(kv, keyvals...)
	return context.WithValue(ctx, logValuesKey{}, kv)
}

// LogValues returns the keyvals stored by ContextWithLogValues.
func LogValues(ctx context.Context) []interface{} {
	kv, _ := ctx.Value(logValuesKey{}).([]interface{})
	return kv
}
