package opencensus_test

import (
	"context"
	"errors"
	"testing"

	"go.opencensus.io/trace"

	"github.com/a69/fnkit.go/function"
	"github.com/a69/fnkit.go/tracing/opencensus"
)

type recordingExporter struct {
	data []*trace.SpanData
}

func (e *recordingExporter) ExportSpan(s *trace.SpanData) {
	e.data = append(e.data, s)
}

func TestTraceFunction(t *testing.T) {
	e := &recordingExporter{}
	trace.RegisterExporter(e)
	defer trace.UnregisterExporter(e)
	trace.ApplyConfig(trace.Config{DefaultSampler: trace.AlwaysSample()})

	mw := opencensus.TraceFunction(opencensus.WithFunctionAttributes(trace.StringAttribute("host", "test")))

	ctx := function.ContextWithName(context.Background(), "upper")
	mw(function.Nop)(ctx, []any{"a"})
	mw(func(context.Context, []any) ([]any, error) { return nil, errors.New("boom") })(context.Background(), nil)

	if want, have := 2, len(e.data); want != have {
		t.Fatalf("want %d spans, have %d", want, have)
	}

	span := e.data[0]
	if want, have := "upper", span.Name; want != have {
		t.Errorf("want span name %q, have %q", want, have)
	}
	if want, have := int32(trace.StatusCodeOK), span.Code; want != have {
		t.Errorf("want status %d, have %d", want, have)
	}
	if want, have := "test", span.Attributes["host"]; want != have {
		t.Errorf("want host attribute %q, have %v", want, have)
	}
	if want, have := int64(1), span.Attributes["fnkit.inputs"]; want != have {
		t.Errorf("want inputs attribute %d, have %v", want, have)
	}

	span = e.data[1]
	if want, have := opencensus.TraceFunctionDefaultName, span.Name; want != have {
		t.Errorf("want span name %q, have %q", want, have)
	}
	if want, have := "boom", span.Message; want != have {
		t.Errorf("want status message %q, have %q", want, have)
	}
}
