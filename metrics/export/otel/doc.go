// Package otel binds sessionauth engine counters to OpenTelemetry observable
// instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter and one
// Int64ObservableGauge per latency bucket, all fed by a single callback that
// reads [sessionauth.Engine.MetricsSnapshot]. Callers own the MeterProvider.
package otel
