package zipkin_test

import (
	"context"
	"errors"
	"testing"

	"github.com/openzipkin/zipkin-go"
	"github.com/openzipkin/zipkin-go/reporter/recorder"

	"github.com/a69/fnkit.go/function"
	zipkinfn "github.com/a69/fnkit.go/tracing/zipkin"
)

const spanName = "test"

func TestTraceFunction(t *testing.T) {
	rec := recorder.NewReporter()
	tr, _ := zipkin.NewTracer(rec)
	mw := zipkinfn.TraceFunction(tr)
	mw(function.Nop)(function.ContextWithName(context.Background(), spanName), nil)

	spans := rec.Flush()

	if want, have := 1, len(spans); want != have {
		t.Fatalf("incorrect number of spans, wanted %d, got %d", want, have)
	}

	if want, have := spanName, spans[0].Name; want != have {
		t.Fatalf("incorrect span name, wanted %s, got %s", want, have)
	}
}

func TestTraceFunctionError(t *testing.T) {
	rec := recorder.NewReporter()
	tr, _ := zipkin.NewTracer(rec)
	mw := zipkinfn.TraceFunction(tr)

	parent := tr.StartSpan("parent")
	ctx := zipkin.NewContext(context.Background(), parent)
	mw(func(context.Context, []any) ([]any, error) { return nil, errors.New("boom") })(ctx, nil)
	parent.Finish()

	spans := rec.Flush()
	if want, have := 2, len(spans); want != have {
		t.Fatalf("incorrect number of spans, wanted %d, got %d", want, have)
	}
	child := spans[0]
	if want, have := "function", child.Name; want != have {
		t.Errorf("incorrect span name, wanted %s, got %s", want, have)
	}
	if want, have := "boom", child.Tags["error"]; want != have {
		t.Errorf("incorrect error tag, wanted %s, got %s", want, have)
	}
	if child.ParentID == nil || *child.ParentID != parent.Context().ID {
		t.Errorf("child span is not parented to %v", parent.Context().ID)
	}
}

func TestNewTracer(t *testing.T) {
	tr, rep, err := zipkinfn.NewTracer("svc", "http://localhost:9411/api/v2/spans")
	if err != nil {
		t.Fatal(err)
	}
	defer rep.Close()
	if tr == nil {
		t.Fatal("nil tracer")
	}
}
