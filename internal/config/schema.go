// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

// jsonSchema validates the raw config document before it is decoded
// into a typed Config. Kept as an embedded literal rather than an
// external file, so the binary never depends on a schema asset being
// present on disk.
const jsonSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["devices", "readings"],
  "properties": {
    "name": { "type": "string" },
    "calc_vendor_id": { "type": "string" },
    "push_throttle_delay": { "type": "number", "minimum": 0 },
    "push_timeout": { "type": "number", "minimum": 0 },
    "volatile_q_size": { "type": "integer", "minimum": 0 },
    "timestamp": { "type": "string" },
    "read_interval": { "type": "integer", "minimum": 1 },
    "read_roundtime": { "type": "boolean" },
    "devices": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["reading_type"],
        "properties": {
          "reading_type": {
            "type": "string",
            "enum": [
              "sys", "modbustcp", "modbusrtu", "mqtt",
              "rawserial", "rawtcp", "sma_hycon_csv",
              "sma_speedwire", "snmp"
            ]
          },
          "driver": { "type": "string" },
          "enabled": { "type": "boolean" },
          "min_read_interval": { "type": "integer", "minimum": 0 },
          "vendor_id": { "type": "string" },
          "address": { "type": "object" }
        }
      }
    },
    "readings": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["device", "var"],
        "properties": {
          "device": { "type": "string" },
          "var": { "type": "string" }
        }
      }
    },
    "status_readings": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["device", "reading"],
        "properties": {
          "device": { "type": "string" },
          "reading": { "type": "string" }
        }
      }
    },
    "output": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["field", "source", "typecast"],
        "properties": {
          "device": { "type": "string" },
          "field": { "type": "string" },
          "source": { "type": "string" },
          "typecast": {
            "type": "string",
            "enum": ["int", "float", "str", "bool"]
          }
        }
      }
    },
    "drivers": {
      "type": "object"
    }
  }
}`
