// Package audit implements async event dispatching for token lifecycle
// operations.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, slog, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full semantics.
//   - [Event]: structured audit record.
//
// # What this package must NOT do
//
//   - Decide which events to emit; the Engine does.
//   - Import sessionauth or any sibling internal package.
package audit
