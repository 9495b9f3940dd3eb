// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package capture

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	captureWritersGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netcompress_capture_writers",
		Help: "Count of open capture writers.",
	})

	captureErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netcompress_capture_errors",
		Help: "Count of capture errors encountered.",
	}, []string{"type"})

	capturePackets = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netcompress_capture_packets",
		Help: "Count of captured packet records written.",
	})

	captureBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netcompress_capture_bytes",
		Help: "Count of captured packet bytes written.",
	})

	mergeCount = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netcompress_capture_merges",
		Help: "Count of completed capture merges.",
	})
)

// RegisterMonitoring registers all of this package's monitoring metrics.
func RegisterMonitoring(reg prometheus.Registerer) {
	reg.MustRegister(
		captureWritersGauge,
		captureErrors,
		capturePackets,
		captureBytes,
		mergeCount,
	)
}
