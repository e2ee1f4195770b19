package metrics_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/a69/fnkit.go/function"
	"github.com/a69/fnkit.go/metrics"
)

func TestMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	i, err := metrics.NewInstruments("test", reg)
	require.NoError(t, err)

	ctx := function.ContextWithName(context.Background(), "upper")
	ok := i.Middleware()(function.Nop)
	fail := i.Middleware()(func(context.Context, []any) ([]any, error) { return nil, errors.New("x") })

	ok(ctx, nil)
	ok(ctx, nil)
	fail(ctx, nil)

	if want, have := 2.0, testutil.ToFloat64(i.Invocations.WithLabelValues("upper", "true")); want != have {
		t.Errorf("successes: want %v, have %v", want, have)
	}
	if want, have := 1.0, testutil.ToFloat64(i.Invocations.WithLabelValues("upper", "false")); want != have {
		t.Errorf("failures: want %v, have %v", want, have)
	}
	if want, have := 2, testutil.CollectAndCount(i.Duration); want != have {
		t.Errorf("histogram series: want %d, have %d", want, have)
	}
}

func TestNewInstrumentsDuplicate(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metrics.NewInstruments("dup", reg)
	require.NoError(t, err)
	_, err = metrics.NewInstruments("dup", reg)
	require.Error(t, err)
}
