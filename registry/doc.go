// Package registry implements the HTTP client protocol against the mesh
// registry: fast HEAD heartbeat checks, full POST heartbeats carrying the
// projected agent spec, and best-effort DELETE unregistration.
package registry
