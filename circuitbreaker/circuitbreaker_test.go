package circuitbreaker_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/afex/hystrix-go/hystrix"
	"github.com/sony/gobreaker"
	"github.com/streadway/handy/breaker"

	"github.com/a69/fnkit.go/circuitbreaker"
	"github.com/a69/fnkit.go/transport"
)

var errFailing = errors.New("failing")

func failing(context.Context, []any) ([]any, error) { return nil, errFailing }

func echo(_ context.Context, inputs []any) ([]any, error) { return inputs, nil }

func TestGobreaker(t *testing.T) {
	inv := circuitbreaker.Gobreaker(circuitbreaker.NewGobreaker("gobreaker", time.Minute))(failing)

	for i := 0; i < 5; i++ {
		if _, err := inv(context.Background(), nil); !errors.Is(err, errFailing) {
			t.Fatalf("call %d: want %v, have %v", i, errFailing, err)
		}
	}
	_, err := inv(context.Background(), nil)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("want open state, have %v", err)
	}
	if want, have := http.StatusServiceUnavailable, transport.StatusCode(err); want != have {
		t.Errorf("want %d, have %d", want, have)
	}
}

func TestGobreakerPassesOutputs(t *testing.T) {
	inv := circuitbreaker.Gobreaker(circuitbreaker.NewGobreaker("echo", time.Minute))(echo)
	outputs, err := inv(context.Background(), []any{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if want, have := 2, len(outputs); want != have {
		t.Errorf("want %d outputs, have %d", want, have)
	}
}

func TestHandyBreaker(t *testing.T) {
	inv := circuitbreaker.HandyBreaker(breaker.NewBreaker(0.05))(failing)

	var open error
	for i := 0; i < 100 && open == nil; i++ {
		if _, err := inv(context.Background(), nil); errors.Is(err, breaker.ErrCircuitOpen) {
			open = err
		}
	}
	if open == nil {
		t.Fatal("breaker never opened")
	}
	if want, have := http.StatusServiceUnavailable, transport.StatusCode(open); want != have {
		t.Errorf("want %d, have %d", want, have)
	}
}

func TestHystrixPassesThrough(t *testing.T) {
	hystrix.ConfigureCommand("hystrix-echo", hystrix.CommandConfig{Timeout: 1000})

	outputs, err := circuitbreaker.Hystrix("hystrix-echo")(echo)(context.Background(), []any{1})
	if err != nil {
		t.Fatal(err)
	}
	if want, have := 1, len(outputs); want != have {
		t.Errorf("want %d outputs, have %d", want, have)
	}

	_, err = circuitbreaker.Hystrix("hystrix-echo")(failing)(context.Background(), nil)
	if !errors.Is(err, errFailing) {
		t.Errorf("want %v, have %v", errFailing, err)
	}
	if want, have := http.StatusInternalServerError, transport.StatusCode(err); want != have {
		t.Errorf("want %d, have %d", want, have)
	}
}

func TestHystrixTimeoutDiscardsLateOutputs(t *testing.T) {
	hystrix.ConfigureCommand("hystrix-slow", hystrix.CommandConfig{Timeout: 10})

	finished := make(chan struct{})
	slow := func(context.Context, []any) ([]any, error) {
		defer close(finished)
		time.Sleep(30 * time.Millisecond)
		return []any{"late"}, nil
	}

	outputs, err := circuitbreaker.Hystrix("hystrix-slow")(slow)(context.Background(), nil)
	if !errors.Is(err, hystrix.ErrTimeout) {
		t.Fatalf("want %v, have %v", hystrix.ErrTimeout, err)
	}
	if outputs != nil {
		t.Errorf("want no outputs, have %v", outputs)
	}
	if want, have := http.StatusServiceUnavailable, transport.StatusCode(err); want != have {
		t.Errorf("want %d, have %d", want, have)
	}

	<-finished
}
