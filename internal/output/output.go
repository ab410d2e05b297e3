// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package output evaluates configured JSONata expressions over a
// cycle's device readings and gathers the results into a single
// synthetic "_calc" DeviceReading.
package output

import (
	"errors"

	"github.com/ammp-edge/ae-agent/internal/config"
	"github.com/ammp-edge/ae-agent/internal/log"
	"github.com/ammp-edge/ae-agent/internal/model"
	"github.com/blues/jsonata-go"
)

const calcDeviceKey = "_calc"

// Evaluate runs every entry of cfg.Output against readings and, if any
// succeeded, returns a synthetic "_calc" DeviceReading. It returns
// false if no output succeeded (including when cfg.Output is empty).
func Evaluate(readings []model.DeviceReading, cfg *config.Config) (model.DeviceReading, bool) {
	if len(cfg.Output) == 0 {
		return model.DeviceReading{}, false
	}

	doc := buildInputDocument(readings)

	record := model.NewRecord()
	any := false
	for _, out := range cfg.Output {
		value, err := evaluateOne(doc, out)
		if err != nil {
			log.Warnf("output: evaluating %q: %v", out.Source, err)
			continue
		}
		if value.IsNone() {
			log.Infof("output: expression %q returned no value", out.Source)
		}
		record.SetField(out.Field, value)
		any = true
	}

	if !any {
		return model.DeviceReading{}, false
	}

	if len(readings) > 0 {
		if ts, ok := readings[0].Record.GetTimestamp(); ok {
			record.SetTimestamp(ts)
		}
	}

	return model.DeviceReading{
		Device: model.DeviceRef{Key: calcDeviceKey, VendorID: cfg.CalcVendorID},
		Record: record,
	}, true
}

// evaluateOne compiles and runs a single output expression, coercing
// its result through the declared typecast. A null/undefined result is
// a successful none value, not an error.
func evaluateOne(doc map[string]interface{}, out config.OutputSpec) (model.RuntimeValue, error) {
	expr, err := jsonata.Compile(out.Source)
	if err != nil {
		return model.RuntimeValue{}, err
	}

	result, err := expr.Eval(doc)
	if errors.Is(err, jsonata.ErrUndefined) {
		return model.NoneValue(), nil
	}
	if err != nil {
		return model.RuntimeValue{}, err
	}
	if result == nil {
		return model.NoneValue(), nil
	}

	return typecastResult(result, out.Typecast), nil
}

func typecastResult(result interface{}, tc model.Typecast) model.RuntimeValue {
	switch tc {
	case model.TypecastInt:
		if f, ok := toFloat(result); ok {
			return model.IntValue(int64(f))
		}
		return model.NoneValue()
	case model.TypecastFloat:
		if f, ok := toFloat(result); ok {
			return model.FloatValue(f)
		}
		return model.NoneValue()
	case model.TypecastBool:
		if b, ok := result.(bool); ok {
			return model.BoolValue(b)
		}
		return model.NoneValue()
	case model.TypecastStr:
		if s, ok := result.(string); ok {
			return model.StringValue(s)
		}
		return model.NoneValue()
	default: // unset typecast defaults to float, same as decode.Field
		if f, ok := toFloat(result); ok {
			return model.FloatValue(f)
		}
		return model.NoneValue()
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// buildInputDocument synthesizes { device_key: [{var, value}, ...] }
// from readings, the shape JSONata expressions query against.
func buildInputDocument(readings []model.DeviceReading) map[string]interface{} {
	doc := make(map[string]interface{}, len(readings))
	for _, r := range readings {
		entries := make([]map[string]interface{}, 0, len(r.Record.AllFields()))
		for varName, v := range r.Record.AllFields() {
			entries = append(entries, map[string]interface{}{
				"var":   varName,
				"value": v.Interface(),
			})
		}
		doc[r.Device.Key] = entries
	}
	return doc
}
