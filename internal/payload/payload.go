// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package payload groups a cycle's DeviceReadings by timestamp, at
// whole-second resolution, and assembles each group into a wire-ready
// Payload.
package payload

import (
	"github.com/ammp-edge/ae-agent/internal/log"
	"github.com/ammp-edge/ae-agent/internal/model"
)

// Assemble groups readings by Unix-second timestamp (records without a
// timestamp are dropped) and returns one Payload per group, in the
// order each group's timestamp was first seen. Device ordering within
// a payload follows input order.
func Assemble(readings []model.DeviceReading, metadata *model.Metadata) []model.Payload {
	order := make([]int64, 0)
	groups := make(map[int64][]model.DeviceData)

	for _, r := range readings {
		ts, ok := r.Record.GetTimestamp()
		if !ok {
			log.Warnf("payload: device %q has no timestamp, dropping from cycle", r.Device.Key)
			continue
		}

		epoch := ts.Unix()
		if _, seen := groups[epoch]; !seen {
			order = append(order, epoch)
		}
		groups[epoch] = append(groups[epoch], model.DeviceData{
			Device: r.Device,
			Status: r.Record.Status,
			Fields: r.Record.AllFieldsFiltered(),
		})
	}

	out := make([]model.Payload, 0, len(order))
	for _, epoch := range order {
		out = append(out, model.Payload{
			T: epoch,
			R: groups[epoch],
			M: metadata,
		})
	}
	return out
}
