package runtime

import (
	"context"
	"sync"

	"github.com/dhyansraj/mcp-mesh/types"
)

// handleState is the narrow view shared between the runtime (single
// writer) and the host (many readers).
type handleState struct {
	mu                sync.RWMutex
	agentID           string
	dependencies      map[string]string
	health            types.HealthStatus
	shutdownRequested bool
}

func newHandleState() *handleState {
	return &handleState{
		dependencies: make(map[string]string),
		health:       types.HealthHealthy,
	}
}

func (s *handleState) setAgentID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agentID = id
}

func (s *handleState) setDependencies(deps map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dependencies = deps
}

func (s *handleState) setHealth(h types.HealthStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.health = h
}

func (s *handleState) healthStatus() types.HealthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.health
}

func (s *handleState) requestShutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdownRequested = true
}

// AgentHandle is the host's interface to a running agent runtime:
// an event stream, snapshot reads of shared state, and the command and
// shutdown senders.
type AgentHandle struct {
	state      *handleState
	events     chan types.MeshEvent
	commands   chan types.Command
	shutdownCh chan struct{}
}

// NextEvent blocks until the next mesh event is available.
// When the runtime has stopped and the queue drained, it returns the
// synthetic shutdown event. Cancel ctx to stop waiting.
func (h *AgentHandle) NextEvent(ctx context.Context) (types.MeshEvent, error) {
	select {
	case event, ok := <-h.events:
		if !ok {
			return types.NewShutdownEvent(), nil
		}
		return event, nil
	case <-ctx.Done():
		return types.MeshEvent{}, ctx.Err()
	}
}

// Events exposes the event stream for select-based hosts. The channel is
// closed after the final shutdown event.
func (h *AgentHandle) Events() <-chan types.MeshEvent {
	return h.events
}

// GetAgentID returns the agent ID assigned by the registry.
// ok is false until the first successful registration.
func (h *AgentHandle) GetAgentID() (string, bool) {
	h.state.mu.RLock()
	defer h.state.mu.RUnlock()
	return h.state.agentID, h.state.agentID != ""
}

// GetDependencies returns a snapshot of the capability -> endpoint view.
func (h *AgentHandle) GetDependencies() map[string]string {
	h.state.mu.RLock()
	defer h.state.mu.RUnlock()
	out := make(map[string]string, len(h.state.dependencies))
	for k, v := range h.state.dependencies {
		out[k] = v
	}
	return out
}

// GetStatus returns the current health status.
func (h *AgentHandle) GetStatus() types.HealthStatus {
	return h.state.healthStatus()
}

// IsShutdownRequested reports whether Shutdown has been called.
func (h *AgentHandle) IsShutdownRequested() bool {
	h.state.mu.RLock()
	defer h.state.mu.RUnlock()
	return h.state.shutdownRequested
}

// Shutdown requests graceful shutdown of the runtime. Idempotent:
// duplicate signals are coalesced and only one unregister is attempted.
func (h *AgentHandle) Shutdown() {
	h.state.requestShutdown()
	select {
	case h.shutdownCh <- struct{}{}:
	default:
	}
}

// ReportHealth records the agent's health. The runtime picks the new
// status up before its next heartbeat.
func (h *AgentHandle) ReportHealth(status types.HealthStatus) {
	h.state.setHealth(status)
}

// UpdateTools asks the runtime to replace the tool list. Returns false
// when the command queue is full (the host is sending too fast).
func (h *AgentHandle) UpdateTools(tools []types.ToolSpec) bool {
	return h.send(types.NewUpdateToolsCommand(tools))
}

// UpdatePort asks the runtime to change the announced HTTP port.
// Returns false when the command queue is full.
func (h *AgentHandle) UpdatePort(port uint16) bool {
	return h.send(types.NewUpdatePortCommand(port))
}

func (h *AgentHandle) send(cmd types.Command) bool {
	select {
	case h.commands <- cmd:
		return true
	default:
		return false
	}
}
