package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Kind identifies which member of the Value union is set
type Kind uint8

const (
	KindString Kind = iota
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is an attribute value: a string, a number or a boolean.
// Two values are equal only when both kind and payload match.
type Value struct {
	kind Kind
	s    string
	n    float64
	b    bool
}

// String builds a string Value
func String(s string) Value { return Value{kind: KindString, s: s} }

// Number builds a numeric Value
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// Int is a convenience for Number(float64(i))
func Int(i int) Value { return Number(float64(i)) }

// Bool builds a boolean Value
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func (v Value) Kind() Kind { return v.kind }

// Str returns the string payload and whether v is a string
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Num returns the numeric payload and whether v is a number
func (v Value) Num() (float64, bool) { return v.n, v.kind == KindNumber }

// Boolean returns the boolean payload and whether v is a bool
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBool }

// Equal reports exact equality, with no coercion between kinds
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.n == o.n
	case KindBool:
		return v.b == o.b
	default:
		return v.s == o.s
	}
}

// String renders the value the way it would appear in a JSON document,
// minus quotes for strings.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.s
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.n)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return json.Marshal(v.s)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	val, ok := FromAny(raw)
	if !ok {
		return fmt.Errorf("unsupported attribute value: %s", string(data))
	}
	*v = val
	return nil
}

// FromAny converts a decoded JSON/YAML scalar into a Value.
// nil yields ok=false. Maps and slices are kept as their compact JSON text.
func FromAny(raw interface{}) (Value, bool) {
	switch x := raw.(type) {
	case nil:
		return Value{}, false
	case Value:
		return x, true
	case string:
		return String(x), true
	case bool:
		return Bool(x), true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return String(x.String()), true
		}
		return Number(f), true
	case float64:
		return Number(x), true
	case float32:
		return Number(float64(x)), true
	case int:
		return Number(float64(x)), true
	case int64:
		return Number(float64(x)), true
	case int32:
		return Number(float64(x)), true
	case uint64:
		return Number(float64(x)), true
	case uint:
		return Number(float64(x)), true
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return String(fmt.Sprint(x)), true
		}
		return String(string(b)), true
	}
}

// ParseValue interprets s as a JSON scalar when it is one (true, false,
// numbers, quoted strings) and as a bare string otherwise.
func ParseValue(s string) Value {
	var raw interface{}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil || dec.More() {
		return String(s)
	}
	switch raw.(type) {
	case string, bool, json.Number:
		v, _ := FromAny(raw)
		return v
	default:
		return String(s)
	}
}

// Attributes maps attribute names to values
type Attributes map[string]Value

// AttributesFrom converts a generic map, dropping nil values
func AttributesFrom(m map[string]interface{}) Attributes {
	attrs := make(Attributes, len(m))
	for k, raw := range m {
		if v, ok := FromAny(raw); ok {
			attrs[k] = v
		}
	}
	return attrs
}

// Clone returns a copy that shares nothing with a
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Get returns the value for key, if present
func (a Attributes) Get(key string) (Value, bool) {
	v, ok := a[key]
	return v, ok
}

// Equal reports whether both maps hold the same keys with equal values
func (a Attributes) Equal(o Attributes) bool {
	if len(a) != len(o) {
		return false
	}
	for k, v := range a {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Keys returns the attribute names in sorted order
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
