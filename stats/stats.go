// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package stats aggregates packet compression statistics.
package stats

import (
	"context"
	"sync"
	"time"
)

// Totals are byte counts for both directions.
type Totals struct {
	// InCompressed and InDecompressed are the wire and decoded sizes of
	// received packets.
	InCompressed   int64
	InDecompressed int64

	// OutCompressed and OutUncompressed are the wire and original sizes of
	// sent packets.
	OutCompressed   int64
	OutUncompressed int64
}

// InSavings is the percentage of received bytes saved by compression.
func (t *Totals) InSavings() float64 { return Savings(t.InCompressed, t.InDecompressed) }

// OutSavings is the percentage of sent bytes saved by compression.
func (t *Totals) OutSavings() float64 { return Savings(t.OutCompressed, t.OutUncompressed) }

// TotalSavings is the percentage of bytes saved by compression in both
// directions.
func (t *Totals) TotalSavings() float64 {
	return Savings(t.InCompressed+t.OutCompressed, t.InDecompressed+t.OutUncompressed)
}

func (t *Totals) add(o *Totals) {
	t.InCompressed += o.InCompressed
	t.InDecompressed += o.InDecompressed
	t.OutCompressed += o.OutCompressed
	t.OutUncompressed += o.OutUncompressed
}

// Savings returns (1 - compressed/raw) * 100. It is 0 if either count is 0.
func Savings(compressed, raw int64) float64 {
	if compressed == 0 || raw == 0 {
		return 0
	}
	return (1 - float64(compressed)/float64(raw)) * 100
}

// Snapshot is the result of one UpdateStats interval.
type Snapshot struct {
	// Interval is the duration the snapshot covers.
	Interval time.Duration

	// Totals are this interval's byte counts.
	Totals

	// InBytesPerSecond and OutBytesPerSecond are compressed (wire)
	// throughput over the interval.
	InBytesPerSecond  float64
	OutBytesPerSecond float64

	// LifetimeSavings is the total savings percentage since the Aggregator
	// was created.
	LifetimeSavings float64
}

// Aggregator accumulates compression statistics from any number of
// connections.
//
// Per-interval totals are reset by UpdateStats. Lifetime totals are never
// reset.
//
// Aggregator is safe for concurrent use.
type Aggregator struct {
	mu       sync.Mutex
	interval Totals
	lifetime Totals
	latest   Snapshot
}

// New returns a new Aggregator.
func New() *Aggregator { return &Aggregator{} }

// IncomingStats records a received packet.
func (a *Aggregator) IncomingStats(compressed, decompressed int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.interval.InCompressed += int64(compressed)
	a.interval.InDecompressed += int64(decompressed)
	inCompressedBytes.Add(float64(compressed))
	inDecompressedBytes.Add(float64(decompressed))
}

// OutgoingStats records a sent packet.
func (a *Aggregator) OutgoingStats(compressed, uncompressed int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.interval.OutCompressed += int64(compressed)
	a.interval.OutUncompressed += int64(uncompressed)
	outCompressedBytes.Add(float64(compressed))
	outUncompressedBytes.Add(float64(uncompressed))
}

// UpdateStats closes the current interval, which lasted dt, and returns its
// Snapshot.
func (a *Aggregator) UpdateStats(dt time.Duration) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.lifetime.add(&a.interval)

	snap := Snapshot{
		Interval:        dt,
		Totals:          a.interval,
		LifetimeSavings: a.lifetime.TotalSavings(),
	}
	if secs := dt.Seconds(); secs > 0 {
		snap.InBytesPerSecond = float64(a.interval.InCompressed) / secs
		snap.OutBytesPerSecond = float64(a.interval.OutCompressed) / secs
	}

	a.interval = Totals{}
	a.latest = snap
	publish(&snap)
	return snap
}

// Snapshot returns the Snapshot of the most recent interval.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.latest
}

// Lifetime returns totals over every completed interval.
func (a *Aggregator) Lifetime() Totals {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lifetime
}

// Run calls UpdateStats every period until ctx is cancelled. Each update is
// given the actual time elapsed since the previous one.
func (a *Aggregator) Run(ctx context.Context, period time.Duration) {
	t := time.NewTicker(period)
	defer t.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			a.UpdateStats(now.Sub(last))
			last = now
		}
	}
}
