// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	inCompressedBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netcompress_in_compressed_bytes",
		Help: "Count of compressed bytes received.",
	})

	inDecompressedBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netcompress_in_decompressed_bytes",
		Help: "Count of bytes received, after decompression.",
	})

	outCompressedBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netcompress_out_compressed_bytes",
		Help: "Count of compressed bytes sent.",
	})

	outUncompressedBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netcompress_out_uncompressed_bytes",
		Help: "Count of bytes sent, before compression.",
	})

	savingsGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "netcompress_savings_percent",
		Help: "Percentage of bytes saved by compression in the latest interval.",
	}, []string{"direction"})

	lifetimeSavingsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netcompress_lifetime_savings_percent",
		Help: "Percentage of bytes saved by compression since startup.",
	})

	throughputGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "netcompress_throughput_bytes_per_second",
		Help: "Compressed bytes per second in the latest interval.",
	}, []string{"direction"})
)

func publish(snap *Snapshot) {
	savingsGauge.WithLabelValues("in").Set(snap.InSavings())
	savingsGauge.WithLabelValues("out").Set(snap.OutSavings())
	savingsGauge.WithLabelValues("total").Set(snap.TotalSavings())
	lifetimeSavingsGauge.Set(snap.LifetimeSavings)
	throughputGauge.WithLabelValues("in").Set(snap.InBytesPerSecond)
	throughputGauge.WithLabelValues("out").Set(snap.OutBytesPerSecond)
}

// RegisterMonitoring registers all of this package's monitoring metrics.
func RegisterMonitoring(reg prometheus.Registerer) {
	reg.MustRegister(
		inCompressedBytes,
		inDecompressedBytes,
		outCompressedBytes,
		outUncompressedBytes,
		savingsGauge,
		lifetimeSavingsGauge,
		throughputGauge,
	)
}
