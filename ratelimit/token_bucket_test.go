package ratelimit_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/a69/fnkit.go/function"
	"github.com/a69/fnkit.go/ratelimit"
	"github.com/a69/fnkit.go/transport"
)

var nopInvoker = function.Nop

func TestErroringLimiter(t *testing.T) {
	inv := ratelimit.New(1, 1, "error")(nopInvoker)

	if _, err := inv(context.Background(), nil); err != nil {
		t.Fatalf("first call: %v", err)
	}
	_, err := inv(context.Background(), nil)
	if !errors.Is(err, ratelimit.ErrLimited) {
		t.Fatalf("want %v, have %v", ratelimit.ErrLimited, err)
	}
	if want, have := http.StatusTooManyRequests, transport.StatusCode(err); want != have {
		t.Errorf("want %d, have %d", want, have)
	}
}

func TestDelayingLimiter(t *testing.T) {
	inv := ratelimit.New(1, 1, "wait")(nopInvoker)

	if _, err := inv(context.Background(), nil); err != nil {
		t.Fatalf("first call: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := inv(ctx, nil); err == nil {
		t.Fatal("want wait error, have none")
	}
}

func TestAllowerFunc(t *testing.T) {
	allow := false
	inv := ratelimit.NewErroringLimiter(ratelimit.AllowerFunc(func() bool { return allow }))(nopInvoker)
	if _, err := inv(context.Background(), nil); err != ratelimit.ErrLimited {
		t.Errorf("want %v, have %v", ratelimit.ErrLimited, err)
	}
	allow = true
	if _, err := inv(context.Background(), nil); err != nil {
		t.Errorf("want no error, have %v", err)
	}
}

func TestWaiterFunc(t *testing.T) {
	errWait := errors.New("no")
	inv := ratelimit.NewDelayingLimiter(ratelimit.WaiterFunc(func(context.Context) error { return errWait }))(nopInvoker)
	if _, err := inv(context.Background(), nil); err != errWait {
		t.Errorf("want %v, have %v", errWait, err)
	}
}
