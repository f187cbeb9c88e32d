package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Args holds the named arguments of an action invocation or the fields of
// a completion result.
//
// Values are restricted to the canonical JSON subset: string, bool,
// integers, []any and map[string]any. Floats are rejected by
// MarshalCanonical. Values decoded from JSON arrive as json.Number and
// values decoded from YAML as int; the typed getters accept both.
type Args map[string]any

// String returns the string argument named key.
func (a Args) String(key string) (string, error) {
	v, ok := a[key]
	if !ok {
		return "", fmt.Errorf("missing argument %q", key)
	}
	switch val := v.(type) {
	case string:
		return val, nil
	case Principal:
		return string(val), nil
	case Status:
		return string(val), nil
	default:
		return "", fmt.Errorf("argument %q: expected string, got %T", key, v)
	}
}

// Int returns the signed integer argument named key.
func (a Args) Int(key string) (int64, error) {
	v, ok := a[key]
	if !ok {
		return 0, fmt.Errorf("missing argument %q", key)
	}
	switch val := v.(type) {
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	case uint64:
		if val > math.MaxInt64 {
			return 0, fmt.Errorf("argument %q: %d overflows int64", key, val)
		}
		return int64(val), nil
	case json.Number:
		n, err := strconv.ParseInt(val.String(), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("argument %q: %w", key, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("argument %q: expected integer, got %T", key, v)
	}
}

// Uint returns the non-negative integer argument named key.
func (a Args) Uint(key string) (uint64, error) {
	v, ok := a[key]
	if !ok {
		return 0, fmt.Errorf("missing argument %q", key)
	}
	switch val := v.(type) {
	case uint64:
		return val, nil
	case json.Number:
		n, err := strconv.ParseUint(val.String(), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("argument %q: %w", key, err)
		}
		return n, nil
	case int, int64:
		n, _ := a.Int(key)
		if n < 0 {
			return 0, fmt.Errorf("argument %q: %d is negative", key, n)
		}
		return uint64(n), nil
	default:
		return 0, fmt.Errorf("argument %q: expected non-negative integer, got %T", key, v)
	}
}

// DecodeArgs parses a JSON object into Args, keeping integers exact.
func DecodeArgs(data []byte) (Args, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Args{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var a Args
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("decode args: %w", err)
	}
	if a == nil {
		a = Args{}
	}
	return a, nil
}
