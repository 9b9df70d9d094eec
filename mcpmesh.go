// Package mcpmesh provides a top-level convenience entry point for
// starting mesh agents with minimal boilerplate.
//
// Usage:
//
//	import "github.com/dhyansraj/mcp-mesh"
//
//	handle, err := mcpmesh.Start(&mcpmesh.AgentSpec{
//	    Name:        "weather-agent",
//	    RegistryURL: "http://localhost:8000",
//	})
//	for {
//	    event, _ := handle.NextEvent(ctx)
//	    if event.Type == mcpmesh.EventShutdown {
//	        break
//	    }
//	}
//
// This is a thin wrapper around [runtime.Start]; both produce identical
// results. Use this package when you prefer the shorter import path.
package mcpmesh

import (
	"go.uber.org/zap"

	"github.com/dhyansraj/mcp-mesh/runtime"
	"github.com/dhyansraj/mcp-mesh/types"
)

// Re-export the host-facing types so callers never need to import
// runtime/ and types/ directly.

// AgentSpec is the declarative agent description.
type AgentSpec = types.AgentSpec

// ToolSpec declares one capability provided by the agent.
type ToolSpec = types.ToolSpec

// DependencySpec declares a capability requirement.
type DependencySpec = types.DependencySpec

// LlmAgentSpec declares a function that delegates to an LLM.
type LlmAgentSpec = types.LlmAgentSpec

// MeshEvent is a tagged record emitted by the runtime.
type MeshEvent = types.MeshEvent

// AgentHandle is the host's interface to a running agent.
type AgentHandle = runtime.AgentHandle

// Config controls the runtime.
type Config = runtime.Config

// Event kinds a host switches on.
const (
	EventAgentRegistered       = types.EventAgentRegistered
	EventRegistrationFailed    = types.EventRegistrationFailed
	EventDependencyAvailable   = types.EventDependencyAvailable
	EventDependencyChanged     = types.EventDependencyChanged
	EventDependencyUnavailable = types.EventDependencyUnavailable
	EventLlmToolsUpdated       = types.EventLlmToolsUpdated
	EventLlmProviderAvailable  = types.EventLlmProviderAvailable
	EventRegistryConnected     = types.EventRegistryConnected
	EventRegistryDisconnected  = types.EventRegistryDisconnected
	EventHealthStatusChanged   = types.EventHealthStatusChanged
	EventShutdown              = types.EventShutdown
)

// Health statuses reportable through the handle.
const (
	HealthHealthy   = types.HealthHealthy
	HealthDegraded  = types.HealthDegraded
	HealthUnhealthy = types.HealthUnhealthy
)

// Option configures Start.
type Option func(*options)

type options struct {
	config Config
	logger *zap.Logger
}

// WithConfig overrides the default runtime configuration.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.config = cfg }
}

// WithLogger attaches a logger to the runtime. Without one the runtime
// stays silent.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Start validates the spec and spawns the agent runtime.
func Start(spec *AgentSpec, opts ...Option) (*AgentHandle, error) {
	o := options{config: runtime.DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	return runtime.Start(spec, o.config, o.logger)
}
