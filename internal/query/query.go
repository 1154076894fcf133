// Package query decodes the flat percent-encoded key=value strings returned by
// the video info endpoint. The same decoder is applied again to every stream
// descriptor embedded in the stream map, which is itself such a string.
package query

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ErrMalformedInput is returned when a string is not a valid query string.
var ErrMalformedInput = errors.New("malformed input")

// Map is an immutable key/value view over a decoded query string.
// Duplicate keys resolve to the last value seen.
type Map struct {
	m map[string]string
}

// Decode parses a bare query string (no scheme, host or leading '?').
// Pairs are separated by '&' only; ';' is an ordinary character. Keys and
// values are unescaped once, '+' meaning space. Empty input yields an
// empty Map.
func Decode(raw string) (Map, error) {
	m := make(map[string]string)
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return Map{}, fmt.Errorf("%w: key %q: %v", ErrMalformedInput, rawKey, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return Map{}, fmt.Errorf("%w: value of %q: %v", ErrMalformedInput, key, err)
		}
		m[key] = value
	}
	return Map{m: m}, nil
}

// FromPairs builds a Map directly from decoded values.
func FromPairs(pairs map[string]string) Map {
	m := make(map[string]string, len(pairs))
	for k, v := range pairs {
		m[k] = v
	}
	return Map{m: m}
}

// Get returns the value for key, or "" when absent.
func (q Map) Get(key string) string {
	return q.m[key]
}

// Lookup reports whether key is present along with its value.
func (q Map) Lookup(key string) (string, bool) {
	v, ok := q.m[key]
	return v, ok
}

// Len returns the number of distinct keys.
func (q Map) Len() int {
	return len(q.m)
}

// Keys returns the keys in sorted order.
func (q Map) Keys() []string {
	keys := make([]string, 0, len(q.m))
	for k := range q.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Encode renders the map back into query-string form, keys sorted.
func (q Map) Encode() string {
	values := make(url.Values, len(q.m))
	for k, v := range q.m {
		values.Set(k, v)
	}
	return values.Encode()
}
