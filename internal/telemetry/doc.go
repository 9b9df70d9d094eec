// Package telemetry wraps OpenTelemetry SDK setup for the mesh runtime.
// When telemetry is disabled, no exporters are created and the global
// providers remain noop, so instrumentation call sites need no guards.
// This package is internal and should not be imported by external projects.
package telemetry
