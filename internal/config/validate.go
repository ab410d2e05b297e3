// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validate checks raw against the embedded config schema. It reports
// an error rather than exiting the process: a schema-invalid config
// arriving on the command topic is a recoverable fault (the previous
// config stays active), while a schema-invalid config at startup is
// fatal to the caller, not to Validate itself.
func Validate(raw []byte) error {
	sch, err := jsonschema.CompileString("config.json", jsonSchema)
	if err != nil {
		return fmt.Errorf("config: compiling schema: %w", err)
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("config: parsing json: %w", err)
	}

	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("config: schema validation: %w", err)
	}
	return nil
}
