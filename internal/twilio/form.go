package twilio

import (
	"fmt"
	"net/url"
	"strings"
)

const formContentType = "application/x-www-form-urlencoded"

// Param is one key/value pair of an outbound request. Order is preserved on the wire.
type Param struct {
	Key   string
	Value string
}

// EncodeParams renders params as the API expects them: every pair is written
// as key=value followed by '&' (the trailing separator is kept), and only then
// is every literal '+' in the assembled string replaced with %2B. Nothing else
// is escaped.
func EncodeParams(params []Param) string {
	var b strings.Builder
	for _, p := range params {
		b.WriteString(p.Key)
		b.WriteByte('=')
		b.WriteString(p.Value)
		b.WriteByte('&')
	}
	return strings.ReplaceAll(b.String(), "+", "%2B")
}

// escapeValue percent-encodes v for values that carry markup or separators,
// such as inline TwiML. Spaces become %20 so the later '+' pass leaves them
// intact.
func escapeValue(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}

// Fields is an insertion-ordered string map built from a urlencoded form.
// A repeated key keeps the position of its first occurrence and the value of
// its last one.
type Fields struct {
	keys   []string
	values map[string]string
}

// NewFields returns an empty field map.
func NewFields() *Fields {
	return &Fields{values: make(map[string]string)}
}

// ParseFields decodes an application/x-www-form-urlencoded string, keeping
// the order in which keys first appear. Empty segments are skipped; a segment
// without '=' yields an empty value.
func ParseFields(encoded string) (*Fields, error) {
	f := NewFields()
	for _, pair := range strings.Split(encoded, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("decode key %q: %w", rawKey, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("decode value for %q: %w", key, err)
		}
		f.Set(key, value)
	}
	return f, nil
}

// Set stores value under key, appending key to the order if it is new.
func (f *Fields) Set(key, value string) {
	if f.values == nil {
		f.values = make(map[string]string)
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Get returns the value for key, or "" when absent.
func (f *Fields) Get(key string) string {
	if f == nil {
		return ""
	}
	return f.values[key]
}

// Lookup returns the value for key and whether it was present.
func (f *Fields) Lookup(key string) (string, bool) {
	if f == nil {
		return "", false
	}
	v, ok := f.values[key]
	return v, ok
}

// Len returns the number of distinct keys.
func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Keys returns the keys in first-seen order.
func (f *Fields) Keys() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// Each calls fn for every field in order.
func (f *Fields) Each(fn func(key, value string)) {
	if f == nil {
		return
	}
	for _, k := range f.keys {
		fn(k, f.values[k])
	}
}

// Params returns the fields as an ordered parameter list.
func (f *Fields) Params() []Param {
	out := make([]Param, 0, f.Len())
	f.Each(func(k, v string) {
		out = append(out, Param{Key: k, Value: v})
	})
	return out
}

// require returns the value of key or a parsing error naming the missing field.
func (f *Fields) require(key string) (string, error) {
	v, ok := f.Lookup(key)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: missing field %s", ErrParsing, key)
	}
	return v, nil
}

// first returns the value of the first present key.
func (f *Fields) first(keys ...string) string {
	for _, k := range keys {
		if v, ok := f.Lookup(k); ok && v != "" {
			return v
		}
	}
	return ""
}
