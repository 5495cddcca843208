// Package metrics provides lock-free counters and latency histograms for the
// session engine.
//
// Counters live in cache-line-padded uint64 slots and are incremented with
// sync/atomic. Histograms use 8 fixed buckets (≤5ms … +Inf). Both are
// allocation-free on the write path.
//
// Export (Prometheus, OTel) lives in metrics/export and reads Snapshot values.
// This package performs no I/O and keeps no global registry.
package metrics
