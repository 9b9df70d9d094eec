// Package heartbeat implements the dual-heartbeat state machine:
// lightweight HEAD checks at the configured interval, full POST
// heartbeats when the registry signals a topology change, and
// exponential-backoff reconnection after the missed-beat threshold.
//
// The state machine is pure decision logic over scalar state. It is not
// safe for concurrent use; the runtime loop is its only owner.
package heartbeat
