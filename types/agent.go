package types

import (
	"fmt"
	"sort"
)

// AgentType distinguishes how an agent exposes its tools.
type AgentType string

const (
	// AgentTypeMCP is a standard MCP agent hosting tools over MCP transport.
	AgentTypeMCP AgentType = "mcp_agent"
	// AgentTypeAPI is an agent exposing plain HTTP API endpoints.
	AgentTypeAPI AgentType = "api"
)

// DependencySpec declares a capability required by a tool.
type DependencySpec struct {
	// Capability is the capability name to depend on.
	Capability string `json:"capability" yaml:"capability"`

	// Tags filter providers. A "+" prefix requires a tag, "-" excludes it.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Version is an optional version constraint (e.g. ">=2.0.0").
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
}

// ToolSpec declares one capability provided by the agent.
type ToolSpec struct {
	// FunctionName is the function name in host code.
	FunctionName string `json:"function_name" yaml:"function_name"`

	// Capability is the capability name announced for discovery.
	Capability string `json:"capability" yaml:"capability"`

	// Version of this capability.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Tags for provider-side filtering.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Description is a human-readable description.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Dependencies required by this tool. Order is significant: the
	// position of each entry is its identity in topology tracking.
	Dependencies []DependencySpec `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`

	// InputSchema is an opaque JSON Schema string (MCP format).
	InputSchema string `json:"input_schema,omitempty" yaml:"input_schema,omitempty"`

	// LlmFilter is an opaque JSON filter specification.
	LlmFilter string `json:"llm_filter,omitempty" yaml:"llm_filter,omitempty"`

	// LlmProvider is an opaque JSON provider specification.
	LlmProvider string `json:"llm_provider,omitempty" yaml:"llm_provider,omitempty"`

	// Kwargs carries additional opaque JSON keyword arguments.
	Kwargs string `json:"kwargs,omitempty" yaml:"kwargs,omitempty"`
}

// LlmAgentSpec declares a function that delegates to an LLM.
type LlmAgentSpec struct {
	// FunctionID matches the owning tool's FunctionName.
	FunctionID string `json:"function_id" yaml:"function_id"`

	// Provider is an opaque JSON provider selector.
	Provider string `json:"provider" yaml:"provider"`

	// Filter is an opaque JSON tool filter.
	Filter string `json:"filter,omitempty" yaml:"filter,omitempty"`

	// FilterMode is "all", "best_match", or "*".
	FilterMode string `json:"filter_mode,omitempty" yaml:"filter_mode,omitempty"`

	// MaxIterations bounds the agentic loop.
	MaxIterations uint32 `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty"`
}

// AgentSpec is the complete declarative description of a mesh agent.
// The host constructs it once before starting the runtime; after startup
// only HTTPPort and Tools are mutable, via explicit commands.
type AgentSpec struct {
	// Name is the unique agent name. Must be non-empty and stable for
	// the process lifetime.
	Name string `json:"name" yaml:"name"`

	// Version of the agent (semver).
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Description is a human-readable description.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// RegistryURL is the mesh registry base URL.
	RegistryURL string `json:"registry_url" yaml:"registry_url"`

	// HTTPHost is the host announced to the registry.
	HTTPHost string `json:"http_host,omitempty" yaml:"http_host,omitempty"`

	// HTTPPort is the announced port. 0 means auto-assign.
	HTTPPort uint16 `json:"http_port,omitempty" yaml:"http_port,omitempty"`

	// Namespace isolates agents within the mesh.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`

	// AgentType selects the hosting model.
	AgentType AgentType `json:"agent_type,omitempty" yaml:"agent_type,omitempty"`

	// RuntimeLabel is a free-form label, typically the binding language.
	RuntimeLabel string `json:"runtime_label,omitempty" yaml:"runtime_label,omitempty"`

	// Tools provided by this agent, in declaration order.
	Tools []ToolSpec `json:"tools,omitempty" yaml:"tools,omitempty"`

	// LlmAgents declared by this agent.
	LlmAgents []LlmAgentSpec `json:"llm_agents,omitempty" yaml:"llm_agents,omitempty"`

	// HeartbeatInterval in seconds. Minimum 1; 0 selects the default.
	HeartbeatInterval uint64 `json:"heartbeat_interval,omitempty" yaml:"heartbeat_interval,omitempty"`
}

// AgentID returns the agent identifier used on the wire.
// TODO: an instance suffix for multi-instance deployments would have to be
// deterministic across restarts; the registry contract does not need one yet.
func (s *AgentSpec) AgentID() string {
	return s.Name
}

// AllDependencies returns the sorted, deduplicated capability names
// required by the agent's tools.
func (s *AgentSpec) AllDependencies() []string {
	seen := make(map[string]struct{})
	var deps []string
	for _, t := range s.Tools {
		for _, d := range t.Dependencies {
			if _, ok := seen[d.Capability]; !ok {
				seen[d.Capability] = struct{}{}
				deps = append(deps, d.Capability)
			}
		}
	}
	sort.Strings(deps)
	return deps
}

// Validate checks the invariants the runtime relies on.
func (s *AgentSpec) Validate() error {
	if s.Name == "" {
		return NewError(ErrInvalidSpec, "agent name must not be empty")
	}
	if s.RegistryURL == "" {
		return NewError(ErrInvalidSpec, "registry_url must not be empty")
	}
	switch s.AgentType {
	case "", AgentTypeMCP, AgentTypeAPI:
	default:
		return NewError(ErrInvalidSpec, fmt.Sprintf("unknown agent_type %q", s.AgentType))
	}
	for i, la := range s.LlmAgents {
		if la.FunctionID == "" {
			return NewError(ErrInvalidSpec, fmt.Sprintf("llm_agents[%d]: function_id must not be empty", i))
		}
	}
	return nil
}
