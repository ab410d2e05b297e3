// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package model holds the value types shared by every stage of the
// reading engine: runtime values, records, device references, driver
// schemas, and the wire payload shapes.
package model

import (
	"encoding/json"
	"fmt"
)

// Kind tags the variant held by a RuntimeValue.
type Kind int

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// RuntimeValue is a tagged value: none, bool, int, float, or string. It is
// used uniformly as a field value regardless of the source protocol.
type RuntimeValue struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
}

func NoneValue() RuntimeValue             { return RuntimeValue{kind: KindNone} }
func BoolValue(b bool) RuntimeValue       { return RuntimeValue{kind: KindBool, b: b} }
func IntValue(i int64) RuntimeValue       { return RuntimeValue{kind: KindInt, i: i} }
func FloatValue(f float64) RuntimeValue   { return RuntimeValue{kind: KindFloat, f: f} }
func StringValue(s string) RuntimeValue   { return RuntimeValue{kind: KindString, s: s} }

func (v RuntimeValue) Kind() Kind   { return v.kind }
func (v RuntimeValue) IsNone() bool { return v.kind == KindNone }

func (v RuntimeValue) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func (v RuntimeValue) AsInt() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		return int64(v.f), true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func (v RuntimeValue) AsBool() (bool, bool) {
	switch v.kind {
	case KindBool:
		return v.b, true
	case KindInt:
		return v.i != 0, true
	case KindFloat:
		return v.f != 0, true
	default:
		return false, false
	}
}

func (v RuntimeValue) AsString() (string, bool) {
	if v.kind == KindString {
		return v.s, true
	}
	return "", false
}

// Interface returns the value as a plain Go value suitable for feeding
// into a generic JSON document (nil, bool, float64, int64 or string).
func (v RuntimeValue) Interface() interface{} {
	switch v.kind {
	case KindNone:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	default:
		return nil
	}
}

// MarshalJSON emits the bare underlying value, never a tagged wrapper.
func (v RuntimeValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNone:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		return json.Marshal(v.f)
	case KindString:
		return json.Marshal(v.s)
	default:
		return nil, fmt.Errorf("model: unknown RuntimeValue kind %d", v.kind)
	}
}

// UnmarshalJSON infers the variant from the JSON literal's own type.
func (v *RuntimeValue) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case nil:
		*v = NoneValue()
	case bool:
		*v = BoolValue(t)
	case float64:
		*v = FloatValue(t)
	case string:
		*v = StringValue(t)
	default:
		return fmt.Errorf("model: cannot decode %T into RuntimeValue", raw)
	}
	return nil
}
