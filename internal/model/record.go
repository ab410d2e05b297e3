// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package model

import "time"

// Record is the per-device, per-cycle collection of fields and status
// readings: an optional timestamp plus a name -> RuntimeValue map.
// A field appears at most once per record; none values are allowed
// internally but filtered out before a record reaches the wire.
type Record struct {
	timestamp *time.Time
	fields    map[string]RuntimeValue
	Status    []StatusReading
}

func NewRecord() Record {
	return Record{fields: make(map[string]RuntimeValue)}
}

func (r *Record) GetTimestamp() (time.Time, bool) {
	if r.timestamp == nil {
		return time.Time{}, false
	}
	return *r.timestamp, true
}

func (r *Record) SetTimestamp(t time.Time) {
	ts := t.UTC()
	r.timestamp = &ts
}

func (r *Record) SetField(name string, v RuntimeValue) {
	if r.fields == nil {
		r.fields = make(map[string]RuntimeValue)
	}
	r.fields[name] = v
}

func (r *Record) GetField(name string) (RuntimeValue, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// AllFields returns every field including none values. Iteration order
// is unspecified, matching the wire payload's documented field-ordering
// guarantee (or lack thereof).
func (r *Record) AllFields() map[string]RuntimeValue {
	return r.fields
}

// AllFieldsFiltered returns only fields whose value is not none, the
// view used when building an emitted payload.
func (r *Record) AllFieldsFiltered() map[string]RuntimeValue {
	out := make(map[string]RuntimeValue, len(r.fields))
	for k, v := range r.fields {
		if !v.IsNone() {
			out[k] = v
		}
	}
	return out
}
