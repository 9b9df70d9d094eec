// Package topology tracks the agent's resolved view of the mesh and
// turns registry heartbeat responses into ordered change events.
//
// Dependencies are keyed positionally: (requesting function, index in
// that function's ordered dependency list). Two dependencies on the same
// capability therefore never collapse. Providers whose status is neither
// "available" nor "healthy" are treated as absent.
package topology
