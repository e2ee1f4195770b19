package transport

import (
	"github.com/a69/fnkit.go/function"
)

// CollectHeaders merges native header sources into one Headers value. A key
// already collected from an earlier source is not overwritten by a later
// one; callers apply override keys such as path or httpMethod afterwards
// with Headers.Set.
func CollectHeaders(sources ...map[string][]string) function.Headers {
	h := function.Headers{}
	for _, src := range sources {
		for k, vs := range src {
			if _, ok := h[k]; ok || len(vs) == 0 {
				continue
			}
			h.Set(k, vs...)
		}
	}
	return h
}

// Single lifts a single-valued map, as found on most Lambda events, to the
// multi-valued form CollectHeaders takes.
func Single(m map[string]string) map[string][]string {
	if m == nil {
		return nil
	}
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = []string{v}
	}
	return out
}

// ApplyHeaders calls add once for every value of every header in h, keys in
// sorted order and values in their original order. Empty strings are
// values too; only keys without values are skipped.
func ApplyHeaders(h function.Headers, add func(key, value string)) {
	for _, k := range h.Keys() {
		for _, v := range h[k] {
			add(k, v)
		}
	}
}

// MultiValue renders h as the multi-valued header map Lambda responses carry.
func MultiValue(h function.Headers) map[string][]string {
	if len(h) == 0 {
		return nil
	}
	out := map[string][]string{}
	ApplyHeaders(h, func(k, v string) { out[k] = append(out[k], v) })
	return out
}
