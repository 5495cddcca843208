// Package internal holds the pieces of sessionauth that are not part of its
// public API.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - flows: issue, refresh, revoke and authorize orchestration
//   - housekeeping: periodic sweep of expired refresh records
//   - metrics: lock-free counters and latency histograms
//   - slogx: slog setup, request ids and HTTP request logging
package internal
