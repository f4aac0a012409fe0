package webhook

import (
	"encoding/json"
	"fmt"
)

// Payload is a parsed JSON delivery body.
type Payload struct {
	root any
}

// ParsePayload decodes body as a single JSON document.
func ParsePayload(body []byte) (*Payload, error) {
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &Payload{root: root}, nil
}

// Value is the result of a payload lookup. The zero Value is absent.
type Value struct {
	raw     any
	present bool
}

// Lookup walks nested objects by key. Any missing key or non-object
// intermediate yields an absent Value.
func (p *Payload) Lookup(path ...string) Value {
	if p == nil {
		return Value{}
	}

	current := p.root
	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return Value{}
		}
		current, ok = obj[key]
		if !ok {
			return Value{}
		}
	}
	return Value{raw: current, present: true}
}

// Present reports whether the lookup found a value, including JSON null.
func (v Value) Present() bool {
	return v.present
}

// String returns the value if it is a JSON string.
func (v Value) String() (string, bool) {
	s, ok := v.raw.(string)
	return s, v.present && ok
}

// Bool returns the value if it is a JSON boolean.
func (v Value) Bool() (bool, bool) {
	b, ok := v.raw.(bool)
	return b, v.present && ok
}

// Equals compares the value to a string or bool. Absent values and values
// of another JSON type never match.
func (v Value) Equals(want any) bool {
	if !v.present {
		return false
	}
	switch w := want.(type) {
	case string:
		s, ok := v.String()
		return ok && s == w
	case bool:
		b, ok := v.Bool()
		return ok && b == w
	default:
		return false
	}
}
