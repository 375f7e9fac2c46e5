// Package config provides typed access to the opaque parameter maps carried
// by workflow nodes, plus loaders for configuration files.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Params wraps a map[string]any for type-safe value extraction. Accessors
// return the given default when the key is missing or the value cannot be
// converted to the requested type.
type Params struct {
	data map[string]any
}

// New creates a Params from the given map. A nil map yields empty Params.
func New(data map[string]any) Params {
	if data == nil {
		data = make(map[string]any)
	}
	return Params{data: data}
}

// Raw returns the underlying map. Callers must not mutate it.
func (p Params) Raw() map[string]any {
	return p.data
}

// MarshalJSON serializes the underlying map.
func (p Params) MarshalJSON() ([]byte, error) {
	if p.data == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.data)
}

// UnmarshalJSON deserializes into the underlying map.
func (p *Params) UnmarshalJSON(data []byte) error {
	m := make(map[string]any)
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	p.data = m
	return nil
}

// MarshalYAML serializes the underlying map.
func (p Params) MarshalYAML() (any, error) {
	return p.data, nil
}

// UnmarshalYAML deserializes into the underlying map.
func (p *Params) UnmarshalYAML(value *yaml.Node) error {
	m := make(map[string]any)
	if err := value.Decode(&m); err != nil {
		return err
	}
	p.data = m
	return nil
}

// Has reports whether key is present.
func (p Params) Has(key string) bool {
	_, ok := p.data[key]
	return ok
}

// String returns the string value for key, or defaultVal.
func (p Params) String(key, defaultVal string) string {
	if s, ok := p.data[key].(string); ok {
		return s
	}
	return defaultVal
}

// Bool returns the boolean value for key, or defaultVal.
func (p Params) Bool(key string, defaultVal bool) bool {
	if b, ok := p.data[key].(bool); ok {
		return b
	}
	return defaultVal
}

// Int returns the integer value for key, or defaultVal.
// Accepts int, int64, and float64 without a fractional part; JSON decoding
// produces float64 for all numbers.
func (p Params) Int(key string, defaultVal int) int {
	switch v := p.data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if v == float64(int(v)) {
			return int(v)
		}
	}
	return defaultVal
}

// Float returns the float64 value for key, or defaultVal.
func (p Params) Float(key string, defaultVal float64) float64 {
	switch v := p.data[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return defaultVal
}

// Duration returns the duration value for key, or defaultVal.
//
// Accepts a time.ParseDuration string, a numeric value interpreted as
// seconds, or a time.Duration.
func (p Params) Duration(key string, defaultVal time.Duration) time.Duration {
	switch v := p.data[key].(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	case float64:
		return time.Duration(v * float64(time.Second))
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case time.Duration:
		return v
	}
	return defaultVal
}

// StringSlice returns the string slice for key, or defaultVal. A []any with
// any non-string element falls back to defaultVal.
func (p Params) StringSlice(key string, defaultVal []string) []string {
	switch v := p.data[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return defaultVal
			}
			out = append(out, s)
		}
		return out
	}
	return defaultVal
}

// Map returns the nested map for key, or nil.
func (p Params) Map(key string) map[string]any {
	if m, ok := p.data[key].(map[string]any); ok {
		return m
	}
	return nil
}

// Decode decodes the parameter map into a typed struct using mapstructure
// field tags. Unknown keys are ignored; type mismatches are errors so that a
// malformed node configuration fails before execution rather than silently
// running with zero values.
func Decode[T any](p Params) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return out, fmt.Errorf("build decoder: %w", err)
	}
	if err := dec.Decode(p.data); err != nil {
		return out, fmt.Errorf("decode parameters: %w", err)
	}
	return out, nil
}
