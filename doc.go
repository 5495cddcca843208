// Package sessionauth is a dual-token session authority: short-lived signed
// access tokens checked without I/O, and longer-lived refresh tokens whose
// validity also depends on a durable record in a refresh store.
//
// Engine methods are safe to call from multiple goroutines once built with
// [Builder.Build].
//
// # Architecture boundaries
//
// sessionauth is the public surface. It exposes [Engine], [Builder], [Config],
// the error taxonomy and value types. Token encoding lives in jwt, persistence
// in refresh and its drivers, and flow orchestration and audit dispatch under
// internal/.
//
// # Rotation
//
// Every successful Refresh swaps the stored value of the record with a
// compare-and-swap. A replayed or concurrently presented token finds nothing
// to swap and fails with [ErrRevokedToken]. Rotation never extends a record's
// retention.
//
// # Errors
//
// Every error returned by the Engine matches one of the package sentinels
// under errors.Is. [HTTPStatus] maps them onto response codes and
// [PublicMessage] onto client-safe text.
package sessionauth
