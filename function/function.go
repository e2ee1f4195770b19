// Package function holds the generic function abstraction the host adapters
// invoke: a reflective wrapper around plain Go funcs, a name-keyed catalog,
// message envelopes and the conversion rules between host payloads and
// declared input types.
package function

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

// Kind classifies a function by the presence of its input and output.
type Kind int

const (
	// KindFunction takes an input and produces an output.
	KindFunction Kind = iota
	// KindConsumer takes an input and produces nothing.
	KindConsumer
	// KindSupplier takes nothing and produces an output.
	KindSupplier
	// KindRunnable takes nothing and produces nothing.
	KindRunnable
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindConsumer:
		return "consumer"
	case KindSupplier:
		return "supplier"
	case KindRunnable:
		return "runnable"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Descriptor describes a registered function. InputType is nil for
// suppliers, OutputType is nil for consumers. For functions returning a
// receive channel OutputType is the channel's element type.
type Descriptor struct {
	Name       string
	Kind       Kind
	InputType  reflect.Type
	OutputType reflect.Type
	Streaming  bool
}

// AcceptsInput reports whether the function declares an input.
func (d Descriptor) AcceptsInput() bool { return d.InputType != nil }

// ReturnsOutput reports whether the function declares an output.
func (d Descriptor) ReturnsOutput() bool { return d.OutputType != nil }

// AcceptsMessage reports whether the declared input is an Envelope or a
// Message, i.e. whether transports should attach headers to the payload.
func (d Descriptor) AcceptsMessage() bool { return IsMessageType(d.InputType) }

// PayloadType returns the declared input type, or the payload type of the
// declared Message. It is nil for suppliers.
func (d Descriptor) PayloadType() reflect.Type {
	if !d.AcceptsMessage() {
		return d.InputType
	}
	return reflect.New(d.InputType).Interface().(message).payloadType()
}

func (d Descriptor) String() string {
	in, out := "-", "-"
	if d.InputType != nil {
		in = d.InputType.String()
	}
	if d.OutputType != nil {
		out = d.OutputType.String()
	}
	return fmt.Sprintf("%s %s(%s) %s", d.Kind, d.Name, in, out)
}

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// ErrSignature is returned by New when fn does not have a supported shape.
var ErrSignature = errors.New("unsupported function signature")

// Function is a Go func together with its Descriptor.
type Function struct {
	Descriptor
	fn      reflect.Value
	withCtx bool
	withErr bool
	codec   Codec
}

// Option configures a Function.
type Option func(*Function)

// WithCodec sets the Codec used to convert inputs. Default is JSON.
func WithCodec(c Codec) Option {
	return func(f *Function) { f.codec = c }
}

// New inspects fn and returns a Function. Supported shapes are
//
//	func([context.Context,] [In]) ([Out | <-chan Out,] [error])
func New(name string, fn any, options ...Option) (*Function, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("%s: %w: %T is not a func", name, ErrSignature, fn)
	}
	t := v.Type()
	if t.IsVariadic() {
		return nil, fmt.Errorf("%s: %w: variadic", name, ErrSignature)
	}

	f := &Function{Descriptor: Descriptor{Name: name}, fn: v, codec: JSON}

	in := 0
	if t.NumIn() > in && t.In(in) == contextType {
		f.withCtx = true
		in++
	}
	switch t.NumIn() - in {
	case 0:
	case 1:
		f.InputType = t.In(in)
	default:
		return nil, fmt.Errorf("%s: %w: too many arguments", name, ErrSignature)
	}

	out := t.NumOut()
	if out > 0 && t.Out(out-1) == errorType {
		f.withErr = true
		out--
	}
	switch out {
	case 0:
	case 1:
		rt := t.Out(0)
		if rt.Kind() == reflect.Chan {
			if rt.ChanDir()&reflect.RecvDir == 0 {
				return nil, fmt.Errorf("%s: %w: send-only channel result", name, ErrSignature)
			}
			f.Streaming = true
			rt = rt.Elem()
		}
		f.OutputType = rt
	default:
		return nil, fmt.Errorf("%s: %w: too many results", name, ErrSignature)
	}

	switch {
	case f.InputType != nil && f.OutputType != nil:
		f.Kind = KindFunction
	case f.InputType != nil:
		f.Kind = KindConsumer
	case f.OutputType != nil:
		f.Kind = KindSupplier
	default:
		f.Kind = KindRunnable
	}

	for _, option := range options {
		option(f)
	}
	return f, nil
}

// Must is like New but panics on error.
func Must(name string, fn any, options ...Option) *Function {
	f, err := New(name, fn, options...)
	if err != nil {
		panic(err)
	}
	return f
}

// Apply invokes the function once per input and collects every output.
// Suppliers and runnables are invoked exactly once and ignore inputs.
// Streaming results are drained until the channel is closed or ctx is done.
func (f *Function) Apply(ctx context.Context, inputs []any) ([]any, error) {
	if !f.AcceptsInput() {
		return f.call(ctx, nil)
	}
	var outputs []any
	for _, input := range inputs {
		arg, err := Convert(f.codec, input, f.InputType)
		if err != nil {
			return nil, &ConversionError{Function: f.Name, Err: err}
		}
		res, err := f.call(ctx, []reflect.Value{arg})
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, res...)
	}
	return outputs, nil
}

// Invoker returns Apply as an Invoker.
func (f *Function) Invoker() Invoker {
	return f.Apply
}

func (f *Function) call(ctx context.Context, args []reflect.Value) ([]any, error) {
	if f.withCtx {
		args = append([]reflect.Value{reflect.ValueOf(ctx)}, args...)
	}
	results := f.fn.Call(args)

	if f.withErr {
		if errv := results[len(results)-1]; !errv.IsNil() {
			return nil, errv.Interface().(error)
		}
	}
	if f.OutputType == nil {
		return nil, nil
	}
	if !f.Streaming {
		return []any{results[0].Interface()}, nil
	}
	return drain(ctx, results[0])
}

func drain(ctx context.Context, ch reflect.Value) ([]any, error) {
	if ch.IsNil() {
		return nil, nil
	}
	var out []any
	cases := []reflect.SelectCase{
		{Dir: reflect.SelectRecv, Chan: ch},
		{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())},
	}
	for {
		chosen, v, ok := reflect.Select(cases)
		if chosen == 1 {
			return nil, ctx.Err()
		}
		if !ok {
			return out, nil
		}
		out = append(out, v.Interface())
	}
}

// ConversionError reports a payload that could not be converted to the
// declared input type.
type ConversionError struct {
	Function string
	Err      error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("function %s: %v", e.Function, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }
