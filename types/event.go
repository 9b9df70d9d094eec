package types

// EventType identifies the kind of a MeshEvent.
type EventType string

const (
	EventAgentRegistered       EventType = "agent_registered"
	EventRegistrationFailed    EventType = "registration_failed"
	EventDependencyAvailable   EventType = "dependency_available"
	EventDependencyChanged     EventType = "dependency_changed"
	EventDependencyUnavailable EventType = "dependency_unavailable"
	EventLlmToolsUpdated       EventType = "llm_tools_updated"
	EventLlmProviderAvailable  EventType = "llm_provider_available"
	EventRegistryConnected     EventType = "registry_connected"
	EventRegistryDisconnected  EventType = "registry_disconnected"
	EventHealthStatusChanged   EventType = "health_status_changed"
	EventShutdown              EventType = "shutdown"
)

// LlmToolInfo describes one tool available to an LLM agent function.
type LlmToolInfo struct {
	// FunctionName is the remote function to call.
	FunctionName string `json:"function_name"`

	// Capability provided by the tool.
	Capability string `json:"capability"`

	// Description of the tool.
	Description string `json:"description,omitempty"`

	// Endpoint URL to call.
	Endpoint string `json:"endpoint"`

	// AgentID of the providing agent.
	AgentID string `json:"agent_id"`

	// InputSchema is the serialized JSON schema, empty when absent.
	InputSchema string `json:"input_schema,omitempty"`
}

// ProviderInfo describes a resolved LLM provider for a function.
type ProviderInfo struct {
	// AgentID of the providing agent.
	AgentID string `json:"agent_id"`

	// Endpoint URL of the provider.
	Endpoint string `json:"endpoint"`

	// FunctionName is the provider function to call.
	FunctionName string `json:"function_name"`

	// Model served by the provider, when reported.
	Model string `json:"model,omitempty"`

	// Capability of the provider, when reported.
	Capability string `json:"capability,omitempty"`

	// Vendor of the provider, when reported.
	Vendor string `json:"vendor,omitempty"`

	// Version of the provider, when reported.
	Version string `json:"version,omitempty"`
}

// MeshEvent is a tagged record emitted by the runtime to the host SDK.
// Type selects which of the optional fields are populated.
type MeshEvent struct {
	// Type identifies the event kind.
	Type EventType `json:"event_type"`

	// Capability, for dependency events.
	Capability string `json:"capability,omitempty"`

	// Endpoint, for dependency_available / dependency_changed.
	Endpoint string `json:"endpoint,omitempty"`

	// FunctionName, for dependency_available / dependency_changed.
	FunctionName string `json:"function_name,omitempty"`

	// AgentID, for agent_registered and dependency events.
	AgentID string `json:"agent_id,omitempty"`

	// RequestingFunction owning the dependency, for dependency events.
	RequestingFunction string `json:"requesting_function,omitempty"`

	// DepIndex is the positional index of the dependency within its
	// owning function's dependency list. Zero is a meaningful index, so
	// the field is always serialized for dependency events.
	DepIndex int `json:"dep_index"`

	// FunctionID, for llm_tools_updated / llm_provider_available.
	FunctionID string `json:"function_id,omitempty"`

	// Tools, for llm_tools_updated.
	Tools []LlmToolInfo `json:"tools,omitempty"`

	// Provider, for llm_provider_available.
	Provider *ProviderInfo `json:"provider,omitempty"`

	// Error message, for registration_failed.
	Error string `json:"error,omitempty"`

	// Status, for health_status_changed.
	Status HealthStatus `json:"status,omitempty"`

	// Reason, for registry_disconnected.
	Reason string `json:"reason,omitempty"`
}

// NewAgentRegisteredEvent reports the first successful registration.
func NewAgentRegisteredEvent(agentID string) MeshEvent {
	return MeshEvent{Type: EventAgentRegistered, AgentID: agentID}
}

// NewRegistrationFailedEvent reports a rejected or failed full heartbeat.
func NewRegistrationFailedEvent(errMsg string) MeshEvent {
	return MeshEvent{Type: EventRegistrationFailed, Error: errMsg}
}

// NewDependencyAvailableEvent reports a newly resolved dependency.
func NewDependencyAvailableEvent(capability, endpoint, functionName, agentID, requestingFunction string, depIndex int) MeshEvent {
	return MeshEvent{
		Type:               EventDependencyAvailable,
		Capability:         capability,
		Endpoint:           endpoint,
		FunctionName:       functionName,
		AgentID:            agentID,
		RequestingFunction: requestingFunction,
		DepIndex:           depIndex,
	}
}

// NewDependencyChangedEvent reports a dependency whose endpoint or
// function name changed.
func NewDependencyChangedEvent(capability, endpoint, functionName, agentID, requestingFunction string, depIndex int) MeshEvent {
	return MeshEvent{
		Type:               EventDependencyChanged,
		Capability:         capability,
		Endpoint:           endpoint,
		FunctionName:       functionName,
		AgentID:            agentID,
		RequestingFunction: requestingFunction,
		DepIndex:           depIndex,
	}
}

// NewDependencyUnavailableEvent reports a dependency that disappeared.
func NewDependencyUnavailableEvent(capability, requestingFunction string, depIndex int) MeshEvent {
	return MeshEvent{
		Type:               EventDependencyUnavailable,
		Capability:         capability,
		RequestingFunction: requestingFunction,
		DepIndex:           depIndex,
	}
}

// NewLlmToolsUpdatedEvent reports a changed tool list for an LLM function.
func NewLlmToolsUpdatedEvent(functionID string, tools []LlmToolInfo) MeshEvent {
	return MeshEvent{Type: EventLlmToolsUpdated, FunctionID: functionID, Tools: tools}
}

// NewLlmProviderAvailableEvent reports a resolved LLM provider.
func NewLlmProviderAvailableEvent(functionID string, provider ProviderInfo) MeshEvent {
	return MeshEvent{Type: EventLlmProviderAvailable, FunctionID: functionID, Provider: &provider}
}

// NewRegistryConnectedEvent reports a recovered registry connection.
func NewRegistryConnectedEvent() MeshEvent {
	return MeshEvent{Type: EventRegistryConnected}
}

// NewRegistryDisconnectedEvent reports a lost registry connection.
func NewRegistryDisconnectedEvent(reason string) MeshEvent {
	return MeshEvent{Type: EventRegistryDisconnected, Reason: reason}
}

// NewHealthStatusChangedEvent reports an observed health status change.
func NewHealthStatusChangedEvent(status HealthStatus) MeshEvent {
	return MeshEvent{Type: EventHealthStatusChanged, Status: status}
}

// NewShutdownEvent is the final event of a runtime lifetime.
func NewShutdownEvent() MeshEvent {
	return MeshEvent{Type: EventShutdown}
}
