package function

import (
	"fmt"
	"reflect"
	"sort"
)

// Headers is a case-sensitive mapping of header name to one or more string
// values. Unlike http.Header, keys are never canonicalized: whatever the host
// supplied is what the function sees.
type Headers map[string][]string

// Add appends value to the values of key.
func (h Headers) Add(key, value string) {
	h[key] = append(h[key], value)
}

// Set replaces any existing values of key.
func (h Headers) Set(key string, values ...string) {
	h[key] = append([]string(nil), values...)
}

// SetDefault sets key only when it is not already present.
func (h Headers) SetDefault(key string, values ...string) {
	if _, ok := h[key]; ok {
		return
	}
	h.Set(key, values...)
}

// SetAny coerces value to a string before setting it. Nil values are
// ignored and slices expand into multiple values.
func (h Headers) SetAny(key string, value any) {
	if vs := Strings(value); len(vs) > 0 {
		h.Set(key, vs...)
	}
}

// Get returns the first value associated with key, or "".
func (h Headers) Get(key string) string {
	if vs := h[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Values returns all values associated with key.
func (h Headers) Values(key string) []string {
	return h[key]
}

// Keys returns the header names in sorted order.
func (h Headers) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of h.
func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	c := make(Headers, len(h))
	for k, vs := range h {
		c[k] = append([]string(nil), vs...)
	}
	return c
}

// Strings coerces v to a list of strings. Nil yields nil; slices and arrays
// yield one string per non-nil element.
func Strings(v any) []string {
	if v == nil {
		return nil
	}
	switch t := v.(type) {
	case string:
		return []string{t}
	case []string:
		return append([]string(nil), t...)
	case []byte:
		return []string{string(t)}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			el := rv.Index(i)
			if isNil(el) {
				continue
			}
			out = append(out, fmt.Sprint(el.Interface()))
		}
		return out
	case reflect.Pointer, reflect.Interface, reflect.Map:
		if rv.IsNil() {
			return nil
		}
	}
	return []string{fmt.Sprint(v)}
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return v.IsNil()
	}
	return false
}

type empty struct{}

func (empty) String() string { return "<empty>" }

// Empty marks an absent payload, so that a missing body can be told apart
// from an empty string. It converts to the zero value of any input type.
var Empty any = empty{}

// IsEmpty reports whether v is the Empty marker.
func IsEmpty(v any) bool {
	_, ok := v.(empty)
	return ok
}

// Envelope is an untyped payload plus headers. Transports build Envelopes;
// functions usually declare the typed Message instead.
type Envelope struct {
	Payload any
	Headers Headers
}

func (e Envelope) payload() any            { return e.Payload }
func (e Envelope) headers() Headers        { return e.Headers }
func (Envelope) payloadType() reflect.Type { return anyType }

func (e *Envelope) set(payload any, headers Headers) {
	e.Payload = payload
	e.Headers = headers
}

// Message is a typed payload plus headers. A function that declares a
// Message input receives the host's headers; a function that returns a
// Message has its headers copied to the host response where one exists.
type Message[T any] struct {
	Payload T
	Headers Headers
}

// NewMessage returns a Message with an empty header set.
func NewMessage[T any](payload T) Message[T] {
	return Message[T]{Payload: payload, Headers: Headers{}}
}

// WithHeader returns a copy of m with value appended to key.
func (m Message[T]) WithHeader(key string, values ...string) Message[T] {
	h := m.Headers.Clone()
	if h == nil {
		h = Headers{}
	}
	for _, v := range values {
		h.Add(key, v)
	}
	m.Headers = h
	return m
}

func (m Message[T]) payload() any            { return m.Payload }
func (m Message[T]) headers() Headers        { return m.Headers }
func (Message[T]) payloadType() reflect.Type { return reflect.TypeFor[T]() }

func (m *Message[T]) set(payload any, headers Headers) {
	if payload != nil {
		m.Payload = payload.(T)
	}
	m.Headers = headers
}

// message is implemented by Envelope and every Message instantiation.
type message interface {
	payload() any
	headers() Headers
	payloadType() reflect.Type
}

type messageSetter interface {
	set(payload any, headers Headers)
}

var (
	anyType     = reflect.TypeFor[any]()
	messageType = reflect.TypeFor[message]()
)

// IsMessageType reports whether t is Envelope or a Message instantiation.
func IsMessageType(t reflect.Type) bool {
	return t != nil && t.Kind() == reflect.Struct && t.Implements(messageType)
}

// Unwrap splits v into payload and headers when v is an Envelope or Message,
// including pointers to them. Other values are returned with nil headers.
func Unwrap(v any) (payload any, headers Headers, ok bool) {
	if m, isMsg := v.(message); isMsg {
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return nil, nil, false
		}
		return m.payload(), m.headers(), true
	}
	return v, nil, false
}
