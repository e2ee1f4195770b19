package function

import (
	"reflect"
)

// Flatten adapts a function's output sequence to hosts that expect a single
// body per request. When input is a single value and there is exactly one
// output, that output is returned on its own; otherwise the whole sequence
// is returned.
func Flatten(input any, outputs []any) any {
	if !IsCollection(input) && len(outputs) == 1 {
		return outputs[0]
	}
	if outputs == nil {
		return []any{}
	}
	return outputs
}

// IsCollection reports whether v is a sequence of values. Strings and byte
// slices are single values.
func IsCollection(v any) bool {
	switch v.(type) {
	case nil, string, []byte:
		return false
	case []any:
		return true
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return true
	}
	return false
}

// Extract is the inverse of the collection check: a collection yields its
// elements, any other value yields a one-element sequence.
func Extract(v any) []any {
	if !IsCollection(v) {
		return []any{v}
	}
	if vs, ok := v.([]any); ok {
		return vs
	}
	rv := reflect.ValueOf(v)
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
