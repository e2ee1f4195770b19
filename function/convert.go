package function

import (
	"encoding"
	"fmt"
	"reflect"

	jsoniter "github.com/json-iterator/go"
)

// Codec marshals values to and from the wire format a host expects.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSON is the default Codec. It behaves like encoding/json.
var JSON Codec = jsonCodec{api: jsoniter.ConfigCompatibleWithStandardLibrary}

type jsonCodec struct {
	api jsoniter.API
}

func (c jsonCodec) Marshal(v any) ([]byte, error)      { return c.api.Marshal(v) }
func (c jsonCodec) Unmarshal(data []byte, v any) error { return c.api.Unmarshal(data, v) }

var (
	bytesType           = reflect.TypeFor[[]byte]()
	stringType          = reflect.TypeFor[string]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// Convert turns v into a value assignable to t. Strings and byte slices are
// decoded with codec unless t is itself textual; Envelopes are converted into
// Message instantiations, or unwrapped when t is not message-shaped.
func Convert(codec Codec, v any, t reflect.Type) (reflect.Value, error) {
	if IsMessageType(t) {
		return convertMessage(codec, v, t)
	}
	if payload, _, ok := Unwrap(v); ok {
		v = payload
	}
	return convertPayload(codec, v, t)
}

func convertMessage(codec Codec, v any, t reflect.Type) (reflect.Value, error) {
	ptr := reflect.New(t)
	target := ptr.Interface()
	payloadType := target.(message).payloadType()

	var (
		payload any = v
		headers Headers
	)
	if p, h, ok := Unwrap(v); ok {
		payload, headers = p, h
	}
	if headers == nil {
		headers = Headers{}
	}

	var converted any
	if payloadType == anyType {
		converted = payload
		if IsEmpty(payload) {
			converted = nil
		}
	} else {
		pv, err := convertPayload(codec, payload, payloadType)
		if err != nil {
			return reflect.Value{}, err
		}
		converted = pv.Interface()
	}
	target.(messageSetter).set(converted, headers)
	return ptr.Elem(), nil
}

func convertPayload(codec Codec, v any, t reflect.Type) (reflect.Value, error) {
	if v == nil || IsEmpty(v) {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		out := reflect.New(t).Elem()
		out.Set(rv)
		return out, nil
	}

	var raw []byte
	switch s := v.(type) {
	case string:
		raw = []byte(s)
	case []byte:
		raw = s
	}
	if raw != nil || rv.Kind() == reflect.String {
		if raw == nil {
			raw = []byte(rv.String())
		}
		switch {
		case t.Kind() == reflect.String:
			return reflect.ValueOf(string(raw)).Convert(t), nil
		case t == bytesType || (t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8):
			return reflect.ValueOf(raw).Convert(t), nil
		case reflect.PointerTo(t).Implements(textUnmarshalerType) && !isJSONText(raw):
			ptr := reflect.New(t)
			if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText(raw); err != nil {
				return reflect.Value{}, fmt.Errorf("convert to %s: %w", t, err)
			}
			return ptr.Elem(), nil
		}
		return unmarshalInto(codec, raw, t)
	}

	if rv.Type().ConvertibleTo(t) && rv.Kind() != reflect.String && t.Kind() != reflect.String {
		return rv.Convert(t), nil
	}

	// Structured value of a different type, e.g. map to struct.
	data, err := codec.Marshal(v)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("convert %T to %s: %w", v, t, err)
	}
	return unmarshalInto(codec, data, t)
}

func unmarshalInto(codec Codec, data []byte, t reflect.Type) (reflect.Value, error) {
	ptr := reflect.New(t)
	if err := codec.Unmarshal(data, ptr.Interface()); err != nil {
		return reflect.Value{}, fmt.Errorf("decode %s: %w", t, err)
	}
	return ptr.Elem(), nil
}

func isJSONText(b []byte) bool {
	for _, c := range b {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		case '{', '[', '"':
			return true
		}
		return false
	}
	return false
}

// Encode renders v as a response body. Strings and byte slices are written
// as-is; everything else goes through codec.
func Encode(codec Codec, v any) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(t), nil
	case []byte:
		return t, nil
	}
	if IsEmpty(v) {
		return nil, nil
	}
	return codec.Marshal(v)
}
