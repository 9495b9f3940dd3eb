// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package dictionary

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	dictionaryLoadedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netcompress_dictionaries_loaded",
		Help: "Count of dictionaries currently held in memory.",
	})

	dictionaryShares = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netcompress_dictionary_shares",
		Help: "Count of dictionary requests served from an already-loaded dictionary.",
	})

	dictionaryLoadErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netcompress_dictionary_load_errors",
		Help: "Count of dictionary files that failed to load.",
	})
)

// RegisterMonitoring registers all of this package's monitoring metrics.
func RegisterMonitoring(reg prometheus.Registerer) {
	reg.MustRegister(
		dictionaryLoadedGauge,
		dictionaryShares,
		dictionaryLoadErrors,
	)
}
