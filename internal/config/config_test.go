// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `{
  "devices": {
    "meter-a": { "reading_type": "modbustcp" }
  },
  "readings": {
    "voltage": { "device": "meter-a", "var": "voltage" }
  }
}`

func TestParseMinimalConfigAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimalConfig))
	require.NoError(t, err)
	assert.Equal(t, defaultReadInterval, c.ReadInterval)
	assert.Equal(t, defaultPushTimeout, c.PushTimeout)
	assert.Equal(t, defaultVolatileQSize, c.VolatileQSize)
	assert.False(t, c.ReadRoundtime)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte(`{
		"devices": {},
		"readings": {},
		"bogus_field": true
	}`))
	assert.Error(t, err)
}

func TestParseRejectsMissingRequiredFields(t *testing.T) {
	_, err := Parse([]byte(`{"readings": {}}`))
	assert.Error(t, err)
}

func TestParseRejectsInvalidReadingType(t *testing.T) {
	_, err := Parse([]byte(`{
		"devices": { "a": { "reading_type": "not_a_type" } },
		"readings": {}
	}`))
	assert.Error(t, err)
}

func TestParseMalformedJSONDoesNotPanic(t *testing.T) {
	_, err := Parse([]byte(`{not json`))
	assert.Error(t, err)
}

func TestDeviceConfigEnabledDefaultsTrue(t *testing.T) {
	dc := DeviceConfig{}
	assert.True(t, dc.IsEnabled())

	disabled := false
	dc.Enabled = &disabled
	assert.False(t, dc.IsEnabled())
}

func TestInlineDriverLookup(t *testing.T) {
	c, err := Parse([]byte(`{
		"devices": {},
		"readings": {},
		"drivers": { "my-driver": { "common": {} } }
	}`))
	require.NoError(t, err)

	raw, ok := c.InlineDriver("my-driver")
	assert.True(t, ok)
	assert.JSONEq(t, `{"common": {}}`, string(raw))

	_, ok = c.InlineDriver("missing")
	assert.False(t, ok)
}
