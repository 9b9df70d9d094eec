package registry

import (
	"encoding/json"

	"github.com/dhyansraj/mcp-mesh/types"
)

// FastHeartbeatStatus is the outcome of a fast heartbeat check.
type FastHeartbeatStatus int

const (
	// FastNoChanges (HTTP 200): no topology changes.
	FastNoChanges FastHeartbeatStatus = iota
	// FastTopologyChanged (HTTP 202): a full heartbeat is needed.
	FastTopologyChanged
	// FastAgentUnknown (HTTP 410): the registry no longer knows the agent.
	FastAgentUnknown
	// FastRegistryError (HTTP 503): the registry is unhealthy.
	FastRegistryError
	// FastNetworkError: any other status, or the request failed.
	FastNetworkError
)

// FastStatusFromCode maps an HTTP status code to a heartbeat outcome.
func FastStatusFromCode(code int) FastHeartbeatStatus {
	switch code {
	case 200:
		return FastNoChanges
	case 202:
		return FastTopologyChanged
	case 410:
		return FastAgentUnknown
	case 503:
		return FastRegistryError
	default:
		return FastNetworkError
	}
}

// RequiresFullHeartbeat reports whether a full heartbeat must follow.
func (s FastHeartbeatStatus) RequiresFullHeartbeat() bool {
	return s == FastTopologyChanged || s == FastAgentUnknown
}

// IsError reports whether the outcome counts toward the missed-beat
// threshold.
func (s FastHeartbeatStatus) IsError() bool {
	return s == FastRegistryError || s == FastNetworkError
}

// String returns a short name for logging.
func (s FastHeartbeatStatus) String() string {
	switch s {
	case FastNoChanges:
		return "no_changes"
	case FastTopologyChanged:
		return "topology_changed"
	case FastAgentUnknown:
		return "agent_unknown"
	case FastRegistryError:
		return "registry_error"
	default:
		return "network_error"
	}
}

// ResolvedDependency is one provider entry in a heartbeat response.
type ResolvedDependency struct {
	AgentID      string `json:"agent_id"`
	Endpoint     string `json:"endpoint"`
	FunctionName string `json:"function_name"`
	Capability   string `json:"capability"`
	Status       string `json:"status"`
	TTL          uint64 `json:"ttl,omitempty"`
}

// Eligible reports whether the provider may enter the topology.
func (d *ResolvedDependency) Eligible() bool {
	return d.Status == "available" || d.Status == "healthy"
}

// LlmToolEntry is one tool entry in a heartbeat response.
// The registry reports the function name under "name".
type LlmToolEntry struct {
	Name        string          `json:"name"`
	Capability  string          `json:"capability"`
	Description string          `json:"description,omitempty"`
	Endpoint    string          `json:"endpoint"`
	AgentID     string          `json:"agent_id,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// LlmProviderEntry is the resolved provider for one LLM function.
// The registry reports the function name under "name".
type LlmProviderEntry struct {
	AgentID    string `json:"agent_id"`
	Endpoint   string `json:"endpoint"`
	Name       string `json:"name"`
	Model      string `json:"model,omitempty"`
	Capability string `json:"capability,omitempty"`
	Status     string `json:"status,omitempty"`
	Vendor     string `json:"vendor,omitempty"`
	Version    string `json:"version,omitempty"`
}

// HeartbeatResponse is the full heartbeat response from the registry.
type HeartbeatResponse struct {
	Status               string                          `json:"status"`
	Message              string                          `json:"message"`
	AgentID              string                          `json:"agent_id"`
	DependenciesResolved map[string][]ResolvedDependency `json:"dependencies_resolved,omitempty"`
	LlmTools             map[string][]LlmToolEntry       `json:"llm_tools,omitempty"`
	LlmProviders         map[string]LlmProviderEntry     `json:"llm_providers,omitempty"`
}

// DependencyRegistration is one dependency in a heartbeat request.
type DependencyRegistration struct {
	Capability string   `json:"capability"`
	Tags       []string `json:"tags,omitempty"`
	Version    string   `json:"version,omitempty"`
}

// ToolRegistration is one tool in a heartbeat request.
type ToolRegistration struct {
	FunctionName string                   `json:"function_name"`
	Capability   string                   `json:"capability"`
	Version      string                   `json:"version"`
	Tags         []string                 `json:"tags,omitempty"`
	Description  string                   `json:"description,omitempty"`
	Dependencies []DependencyRegistration `json:"dependencies,omitempty"`
	InputSchema  json.RawMessage          `json:"inputSchema,omitempty"`
	LlmFilter    json.RawMessage          `json:"llm_filter,omitempty"`
	LlmProvider  json.RawMessage          `json:"llm_provider,omitempty"`
}

// HeartbeatRequest is the full heartbeat request body.
type HeartbeatRequest struct {
	AgentID  string             `json:"agent_id"`
	Name     string             `json:"name,omitempty"`
	Version  string             `json:"version"`
	HTTPHost string             `json:"http_host"`
	HTTPPort uint16             `json:"http_port"`
	Namespace string            `json:"namespace"`
	Status   string             `json:"status"`
	Tools    []ToolRegistration `json:"tools"`
}

// NewHeartbeatRequest projects an AgentSpec into a heartbeat request.
//
// Opaque JSON fields that are present but unparseable are omitted rather
// than rejected: a malformed schema must never block registration.
func NewHeartbeatRequest(spec *types.AgentSpec, health types.HealthStatus) *HeartbeatRequest {
	tools := make([]ToolRegistration, 0, len(spec.Tools))
	for _, t := range spec.Tools {
		deps := make([]DependencyRegistration, 0, len(t.Dependencies))
		for _, d := range t.Dependencies {
			deps = append(deps, DependencyRegistration{
				Capability: d.Capability,
				Tags:       d.Tags,
				Version:    d.Version,
			})
		}
		tools = append(tools, ToolRegistration{
			FunctionName: t.FunctionName,
			Capability:   t.Capability,
			Version:      t.Version,
			Tags:         t.Tags,
			Description:  t.Description,
			Dependencies: deps,
			InputSchema:  validJSON(t.InputSchema),
			LlmFilter:    validJSON(t.LlmFilter),
			LlmProvider:  validJSON(t.LlmProvider),
		})
	}

	return &HeartbeatRequest{
		AgentID:   spec.AgentID(),
		Name:      spec.Name,
		Version:   spec.Version,
		HTTPHost:  spec.HTTPHost,
		HTTPPort:  spec.HTTPPort,
		Namespace: spec.Namespace,
		Status:    health.String(),
		Tools:     tools,
	}
}

func validJSON(s string) json.RawMessage {
	if s == "" || !json.Valid([]byte(s)) {
		return nil
	}
	return json.RawMessage(s)
}
