// Package refresh defines the durable refresh-token record store and its
// drivers.
//
// # Record model
//
// Each issued refresh token has one record: an ID, the subject it belongs to,
// the SHA-256 hash of the token value, and its creation time. Records become
// unreachable once the store's retention window has elapsed since creation;
// rotation swaps the hash in place and does not extend that deadline.
//
// # Atomicity
//
// Replace is a compare-and-swap on the current hash. Of several callers racing
// to rotate the same record from the same value, exactly one succeeds and the
// others get ErrNotFound. Callers therefore need no in-process locking.
//
// # What this package must NOT do
//
//   - Parse or verify tokens; values are opaque strings here.
//   - Decide what a missing record means to the client.
package refresh
