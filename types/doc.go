// Package types defines the shared data model of the mesh runtime core:
// agent specifications, health statuses, events pushed to the host SDK,
// commands sent by the host, and the unified error type.
//
// Everything here is plain data. The runtime in package runtime owns the
// only mutable copies; hosts receive clones or immutable records.
package types
