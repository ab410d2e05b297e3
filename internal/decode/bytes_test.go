// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package decode

import (
	"testing"

	"github.com/ammp-edge/ae-agent/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldOpts(mutate func(*model.FieldOptions)) model.FieldOptions {
	fo := model.Resolve(model.DriverSchema{}, "x")
	if mutate != nil {
		mutate(&fo)
	}
	return fo
}

func TestDecodeUint16(t *testing.T) {
	fo := fieldOpts(func(fo *model.FieldOptions) {
		fo.DataType = model.DataTypeUInt16
		fo.Typecast = model.TypecastFloat
	})
	v, err := Field([]byte{0x12, 0x34}, fo)
	require.NoError(t, err)
	f, ok := v.AsFloat()
	require.True(t, ok)
	assert.Equal(t, 4660.0, f)
}

func TestDecodeWithMultiplierAndOffset(t *testing.T) {
	fo := fieldOpts(func(fo *model.FieldOptions) {
		fo.DataType = model.DataTypeUInt16
		fo.Multiplier = 0.1
		fo.Offset = 5.0
		fo.Typecast = model.TypecastFloat
	})
	v, err := Field([]byte{0x00, 0x64}, fo) // 100
	require.NoError(t, err)
	f, _ := v.AsFloat()
	assert.Equal(t, 15.0, f)
}

func TestDecodeStringValueAsFloat(t *testing.T) {
	fo := fieldOpts(func(fo *model.FieldOptions) {
		fo.ParseAs = model.ParseAsStr
		fo.Typecast = model.TypecastFloat
	})
	v, err := Field([]byte("123.45"), fo)
	require.NoError(t, err)
	f, _ := v.AsFloat()
	assert.Equal(t, 123.45, f)
}

func TestDecodeStringValueAsString(t *testing.T) {
	fo := fieldOpts(func(fo *model.FieldOptions) {
		fo.ParseAs = model.ParseAsStr
		fo.Typecast = model.TypecastStr
	})
	v, err := Field([]byte("SN12345"), fo)
	require.NoError(t, err)
	s, ok := v.AsString()
	require.True(t, ok)
	assert.Equal(t, "SN12345", s)
}

func TestDecodeStringValueMapLookupWithStrTypecast(t *testing.T) {
	fo := fieldOpts(func(fo *model.FieldOptions) {
		fo.ParseAs = model.ParseAsStr
		fo.Typecast = model.TypecastStr
		fo.ValueMap = map[string]float64{"OK": 1.0}
	})
	v, err := Field([]byte("OK"), fo)
	require.NoError(t, err)
	s, ok := v.AsString()
	require.True(t, ok)
	assert.Equal(t, "1", s)
}

func TestDecodeHexValueMapLookup(t *testing.T) {
	fo := fieldOpts(func(fo *model.FieldOptions) {
		fo.DataType = model.DataTypeUInt16
		fo.ValueMap = map[string]float64{"0x1234": 999.0}
		fo.Typecast = model.TypecastFloat
	})
	v, err := Field([]byte{0x12, 0x34}, fo)
	require.NoError(t, err)
	f, _ := v.AsFloat()
	assert.Equal(t, 999.0, f)
}

func TestDecodeTypecastToInt(t *testing.T) {
	fo := fieldOpts(func(fo *model.FieldOptions) {
		fo.DataType = model.DataTypeUInt16
		fo.Typecast = model.TypecastInt
	})
	v, err := Field([]byte{0x00, 0x64}, fo) // 100
	require.NoError(t, err)
	i, ok := v.AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(100), i)
}

func TestDecodeEmptyBytesYieldsNone(t *testing.T) {
	fo := fieldOpts(nil)
	v, err := Field(nil, fo)
	require.NoError(t, err)
	assert.True(t, v.IsNone())
}

func TestDecodeInsufficientBytesErrors(t *testing.T) {
	fo := fieldOpts(func(fo *model.FieldOptions) { fo.DataType = model.DataTypeUInt32 })
	_, err := Field([]byte{0x00, 0x01}, fo)
	assert.ErrorIs(t, err, ErrInsufficientBytes)
}

func TestDecodeFloat32(t *testing.T) {
	fo := fieldOpts(func(fo *model.FieldOptions) { fo.DataType = model.DataTypeFloat })
	// 1.5f big-endian
	v, err := Field([]byte{0x3f, 0xc0, 0x00, 0x00}, fo)
	require.NoError(t, err)
	f, _ := v.AsFloat()
	assert.Equal(t, 1.5, f)
}

func TestDecodeBoolTypecastSkipsScale(t *testing.T) {
	fo := fieldOpts(func(fo *model.FieldOptions) {
		fo.DataType = model.DataTypeUInt16
		fo.Multiplier = 1000 // would blow up 0 -> 0 but should still be false
		fo.Typecast = model.TypecastBool
	})
	v, err := Field([]byte{0x00, 0x00}, fo)
	require.NoError(t, err)
	b, ok := v.AsBool()
	require.True(t, ok)
	assert.False(t, b)
}
