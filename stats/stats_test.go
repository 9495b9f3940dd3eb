// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package stats

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

var _ = Describe("Aggregator", func() {
	var a *Aggregator
	BeforeEach(func() {
		a = New()
	})

	DescribeTable("Savings",
		func(compressed, raw int64, expected float64) {
			Expect(Savings(compressed, raw)).To(BeNumerically("~", expected, 1e-9))
		},
		Entry("half", int64(50), int64(100), 50.0),
		Entry("none", int64(100), int64(100), 0.0),
		Entry("expansion", int64(150), int64(100), -50.0),
		Entry("nothing compressed", int64(0), int64(100), 0.0),
		Entry("nothing raw", int64(10), int64(0), 0.0),
	)

	It("accumulates an interval and resets it", func() {
		a.IncomingStats(25, 100)
		a.IncomingStats(25, 100)
		a.OutgoingStats(10, 40)

		snap := a.UpdateStats(2 * time.Second)
		Expect(snap.Totals).To(Equal(Totals{
			InCompressed:    50,
			InDecompressed:  200,
			OutCompressed:   10,
			OutUncompressed: 40,
		}))
		Expect(snap.InSavings()).To(BeNumerically("~", 75.0, 1e-9))
		Expect(snap.OutSavings()).To(BeNumerically("~", 75.0, 1e-9))
		Expect(snap.InBytesPerSecond).To(BeNumerically("~", 25.0, 1e-9))
		Expect(snap.OutBytesPerSecond).To(BeNumerically("~", 5.0, 1e-9))
		Expect(snap.LifetimeSavings).To(BeNumerically("~", 75.0, 1e-9))
		Expect(a.Snapshot()).To(Equal(snap))

		empty := a.UpdateStats(time.Second)
		Expect(empty.Totals).To(Equal(Totals{}))
		Expect(empty.TotalSavings()).To(BeZero())
		Expect(empty.InBytesPerSecond).To(BeZero())
	})

	It("never resets lifetime totals", func() {
		a.IncomingStats(50, 100)
		a.UpdateStats(time.Second)
		a.OutgoingStats(100, 100)
		snap := a.UpdateStats(time.Second)

		Expect(a.Lifetime()).To(Equal(Totals{
			InCompressed:    50,
			InDecompressed:  100,
			OutCompressed:   100,
			OutUncompressed: 100,
		}))
		Expect(snap.OutSavings()).To(BeZero())
		Expect(snap.LifetimeSavings).To(BeNumerically("~", 25.0, 1e-9))
	})

	It("reports zero throughput for an empty interval duration", func() {
		a.IncomingStats(10, 20)
		snap := a.UpdateStats(0)
		Expect(snap.InBytesPerSecond).To(BeZero())
		Expect(snap.InSavings()).To(BeNumerically("~", 50.0, 1e-9))
	})

	It("publishes the latest snapshot", func() {
		reg := prometheus.NewPedanticRegistry()
		RegisterMonitoring(reg)

		a.IncomingStats(1, 4)
		a.UpdateStats(time.Second)
		Expect(testutil.ToFloat64(savingsGauge.WithLabelValues("in"))).To(BeNumerically("~", 75.0, 1e-9))
		Expect(testutil.ToFloat64(lifetimeSavingsGauge)).To(BeNumerically("~", 75.0, 1e-9))
	})

	It("updates periodically until cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			a.Run(ctx, time.Millisecond)
		}()

		a.OutgoingStats(1, 2)
		Eventually(func() Totals { return a.Lifetime() }).Should(Equal(Totals{
			OutCompressed:   1,
			OutUncompressed: 2,
		}))

		cancel()
		Eventually(done).Should(BeClosed())
	})
})

func TestStats(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Testing stats")
}
