// Package runtime drives the mesh agent lifecycle: a single background
// loop that registers the agent, keeps heartbeats flowing, diffs topology
// responses into events for the host, honors host commands, and shuts
// down cleanly with a best-effort unregister.
//
// Start spawns the loop and returns an AgentHandle, the host's only
// interface to the running agent.
package runtime
