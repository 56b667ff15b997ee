// Package metrics provides the attestation pool's size gauge. The pool
// reports exactly one time series -- its current count of individually
// staged attestations -- through attestations.MetricsSink, so Gauge only
// exposes the two operations that interface needs: Set, to publish a new
// reading, and Value, for tests to observe what was published.
package metrics

import "sync/atomic"

// Gauge is a monotonically-overwritten int64 value, safe for concurrent
// use without a lock.
type Gauge struct {
	value atomic.Int64
}

// NewGauge returns a new, zero-valued Gauge.
func NewGauge() *Gauge {
	return &Gauge{}
}

// Set publishes a new reading, satisfying attestations.MetricsSink.
func (g *Gauge) Set(v int64) { g.value.Store(v) }

// Value returns the most recently published reading.
func (g *Gauge) Value() int64 { return g.value.Load() }
