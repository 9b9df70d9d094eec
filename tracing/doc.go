// Package tracing publishes trace spans to a shared Redis stream for
// distributed tracing across the mesh.
//
// Publication is strictly best-effort: when tracing is disabled, Redis is
// unreachable, or a publish fails, the publisher reports false and moves
// on. It must never surface an error that could affect agent operation.
package tracing
