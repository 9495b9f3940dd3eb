// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package handler

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	handlerStateGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "netcompress_handlers",
		Help: "Count of initialized handlers, by state.",
	}, []string{"state"})

	packetsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netcompress_packets",
		Help: "Count of packets compressed or decompressed.",
	}, []string{"direction"})

	packetErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netcompress_packet_errors",
		Help: "Count of dropped incoming packets.",
	}, []string{"type"})
)

// RegisterMonitoring registers all of this package's monitoring metrics.
func RegisterMonitoring(reg prometheus.Registerer) {
	reg.MustRegister(
		handlerStateGauge,
		packetsProcessed,
		packetErrors,
	)
}
