// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics exposes the agent's own operational metrics via
// prometheus/client_golang: cycle timing, per-device read failures, and
// publish failures. The package only exports metrics; it does not
// query them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	CycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ae_agent",
		Name:      "cycle_duration_seconds",
		Help:      "Wall-clock duration of a single reading cycle.",
		Buckets:   prometheus.DefBuckets,
	})

	DeviceReadFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ae_agent",
		Name:      "device_read_failures_total",
		Help:      "Count of device reads that produced no record in a cycle.",
	}, []string{"device"})

	PublishFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ae_agent",
		Name:      "publish_failures_total",
		Help:      "Count of cycles whose publish to the broker failed.",
	})

	DevicesRead = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ae_agent",
		Name:      "devices_read",
		Help:      "Number of devices that produced a record in the most recent cycle.",
	})
)

func init() {
	registry.MustRegister(CycleDuration, DeviceReadFailures, PublishFailures, DevicesRead)
}

// Handler serves the registered metrics in the Prometheus text exposition
// format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
