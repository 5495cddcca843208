// Package flows contains the orchestration for every Engine operation.
//
// Each Run function takes a typed dependency struct and returns a result that
// carries a failure kind instead of a public error. The Engine maps kinds to
// its error taxonomy, metrics and audit events; flows never do.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import sessionauth (the root package imports flows).
//   - Perform I/O directly; all I/O goes through the dependency interfaces.
package flows
