package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dhyansraj/mcp-mesh/registry"
	"github.com/dhyansraj/mcp-mesh/types"
)

func depResponse(deps map[string][]registry.ResolvedDependency) *registry.HeartbeatResponse {
	return &registry.HeartbeatResponse{
		Status:               "ok",
		AgentID:              "a",
		DependenciesResolved: deps,
	}
}

func TestTopology_DependencyLifecycle(t *testing.T) {
	topo := New(zap.NewNop())

	// (i) dependency appears.
	events := topo.Apply(depResponse(map[string][]registry.ResolvedDependency{
		"f": {{AgentID: "p", Endpoint: "http://p:1", FunctionName: "g", Capability: "c", Status: "available"}},
	}))
	require.Len(t, events, 1)
	assert.Equal(t, types.EventDependencyAvailable, events[0].Type)
	assert.Equal(t, "c", events[0].Capability)
	assert.Equal(t, "http://p:1", events[0].Endpoint)
	assert.Equal(t, "g", events[0].FunctionName)
	assert.Equal(t, "p", events[0].AgentID)
	assert.Equal(t, "f", events[0].RequestingFunction)
	assert.Equal(t, 0, events[0].DepIndex)

	// (ii) endpoint changes.
	events = topo.Apply(depResponse(map[string][]registry.ResolvedDependency{
		"f": {{AgentID: "p", Endpoint: "http://p:2", FunctionName: "g", Capability: "c", Status: "available"}},
	}))
	require.Len(t, events, 1)
	assert.Equal(t, types.EventDependencyChanged, events[0].Type)
	assert.Equal(t, "http://p:2", events[0].Endpoint)

	// (iii) dependency disappears.
	events = topo.Apply(depResponse(map[string][]registry.ResolvedDependency{"f": {}}))
	require.Len(t, events, 1)
	assert.Equal(t, types.EventDependencyUnavailable, events[0].Type)
	assert.Equal(t, "c", events[0].Capability)
	assert.Equal(t, "f", events[0].RequestingFunction)
	assert.Equal(t, 0, events[0].DepIndex)
}

func TestTopology_PositionalDuplicateCapabilities(t *testing.T) {
	topo := New(zap.NewNop())

	events := topo.Apply(depResponse(map[string][]registry.ResolvedDependency{
		"f": {
			{AgentID: "a1", Endpoint: "http://x", FunctionName: "fast", Capability: "c", Status: "healthy"},
			{AgentID: "a2", Endpoint: "http://y", FunctionName: "slow", Capability: "c", Status: "healthy"},
		},
	}))

	require.Len(t, events, 2)
	assert.Equal(t, types.EventDependencyAvailable, events[0].Type)
	assert.Equal(t, 0, events[0].DepIndex)
	assert.Equal(t, "http://x", events[0].Endpoint)
	assert.Equal(t, 1, events[1].DepIndex)
	assert.Equal(t, "http://y", events[1].Endpoint)

	// Both are tracked independently.
	deps := topo.Dependencies()
	assert.Len(t, deps, 2)
	assert.Equal(t, "fast", deps[DepKey{Function: "f", Index: 0}].FunctionName)
	assert.Equal(t, "slow", deps[DepKey{Function: "f", Index: 1}].FunctionName)

	// Updating only the second position leaves the first untouched.
	events = topo.Apply(depResponse(map[string][]registry.ResolvedDependency{
		"f": {
			{AgentID: "a1", Endpoint: "http://x", FunctionName: "fast", Capability: "c", Status: "healthy"},
			{AgentID: "a3", Endpoint: "http://z", FunctionName: "slow", Capability: "c", Status: "healthy"},
		},
	}))
	require.Len(t, events, 1)
	assert.Equal(t, types.EventDependencyChanged, events[0].Type)
	assert.Equal(t, 1, events[0].DepIndex)
}

func TestTopology_IneligibleProvidersAreAbsent(t *testing.T) {
	topo := New(zap.NewNop())

	events := topo.Apply(depResponse(map[string][]registry.ResolvedDependency{
		"f": {{AgentID: "p", Endpoint: "http://p:1", FunctionName: "g", Capability: "c", Status: "degraded"}},
	}))
	assert.Empty(t, events)
	assert.Empty(t, topo.Dependencies())

	// Becoming available emits the event at the original position.
	events = topo.Apply(depResponse(map[string][]registry.ResolvedDependency{
		"f": {{AgentID: "p", Endpoint: "http://p:1", FunctionName: "g", Capability: "c", Status: "available"}},
	}))
	require.Len(t, events, 1)
	assert.Equal(t, types.EventDependencyAvailable, events[0].Type)

	// A status transition away from available fires unavailable without
	// the provider leaving the response.
	events = topo.Apply(depResponse(map[string][]registry.ResolvedDependency{
		"f": {{AgentID: "p", Endpoint: "http://p:1", FunctionName: "g", Capability: "c", Status: "degraded"}},
	}))
	require.Len(t, events, 1)
	assert.Equal(t, types.EventDependencyUnavailable, events[0].Type)
}

func TestTopology_CapabilityChangeAtSameSlot(t *testing.T) {
	topo := New(zap.NewNop())

	topo.Apply(depResponse(map[string][]registry.ResolvedDependency{
		"f": {{AgentID: "p", Endpoint: "http://x", FunctionName: "g", Capability: "c1", Status: "available"}},
	}))

	// Same endpoint and function name, different capability: still a change.
	events := topo.Apply(depResponse(map[string][]registry.ResolvedDependency{
		"f": {{AgentID: "p", Endpoint: "http://x", FunctionName: "g", Capability: "c2", Status: "available"}},
	}))

	require.Len(t, events, 1)
	assert.Equal(t, types.EventDependencyChanged, events[0].Type)
	assert.Equal(t, "c2", events[0].Capability)
	assert.Equal(t, 0, events[0].DepIndex)
}

func TestTopology_AgentIDAloneIsNotAChange(t *testing.T) {
	topo := New(zap.NewNop())

	topo.Apply(depResponse(map[string][]registry.ResolvedDependency{
		"f": {{AgentID: "a1", Endpoint: "http://x", FunctionName: "g", Capability: "c", Status: "available"}},
	}))
	events := topo.Apply(depResponse(map[string][]registry.ResolvedDependency{
		"f": {{AgentID: "a2", Endpoint: "http://x", FunctionName: "g", Capability: "c", Status: "available"}},
	}))

	assert.Empty(t, events)
}

func TestTopology_IdenticalResponsesEmitOnce(t *testing.T) {
	topo := New(zap.NewNop())

	resp := &registry.HeartbeatResponse{
		AgentID: "a",
		DependenciesResolved: map[string][]registry.ResolvedDependency{
			"f": {{AgentID: "p", Endpoint: "http://p:1", FunctionName: "g", Capability: "c", Status: "available"}},
		},
		LlmTools: map[string][]registry.LlmToolEntry{
			"ask": {{Name: "get_date", Capability: "date", Endpoint: "http://d:1", AgentID: "d1"}},
		},
		LlmProviders: map[string]registry.LlmProviderEntry{
			"ask": {AgentID: "p1", Endpoint: "http://p:9", Name: "chat"},
		},
	}

	first := topo.Apply(resp)
	assert.Len(t, first, 3)

	second := topo.Apply(resp)
	assert.Empty(t, second)
}

func TestTopology_EventOrdering(t *testing.T) {
	topo := New(zap.NewNop())

	topo.Apply(depResponse(map[string][]registry.ResolvedDependency{
		"old": {{AgentID: "p", Endpoint: "http://p:1", FunctionName: "g", Capability: "gone", Status: "available"}},
	}))

	events := topo.Apply(&registry.HeartbeatResponse{
		AgentID: "a",
		DependenciesResolved: map[string][]registry.ResolvedDependency{
			"f": {{AgentID: "p", Endpoint: "http://p:2", FunctionName: "h", Capability: "c", Status: "available"}},
		},
		LlmTools: map[string][]registry.LlmToolEntry{
			"ask": {{Name: "t", Capability: "c", Endpoint: "http://t:1"}},
		},
		LlmProviders: map[string]registry.LlmProviderEntry{
			"ask": {AgentID: "p1", Endpoint: "http://p:9", Name: "chat"},
		},
	})

	require.Len(t, events, 4)
	assert.Equal(t, types.EventDependencyUnavailable, events[0].Type)
	assert.Equal(t, types.EventDependencyAvailable, events[1].Type)
	assert.Equal(t, types.EventLlmToolsUpdated, events[2].Type)
	assert.Equal(t, types.EventLlmProviderAvailable, events[3].Type)
}

func TestTopology_LlmToolsDiff(t *testing.T) {
	topo := New(zap.NewNop())

	resp := &registry.HeartbeatResponse{
		AgentID: "a",
		LlmTools: map[string][]registry.LlmToolEntry{
			"ask": {
				{Name: "t1", Capability: "c1", Endpoint: "http://t:1", AgentID: "a1"},
				{Name: "t2", Capability: "c2", Endpoint: "http://t:2", AgentID: "a2"},
			},
		},
	}

	events := topo.Apply(resp)
	require.Len(t, events, 1)
	assert.Equal(t, types.EventLlmToolsUpdated, events[0].Type)
	assert.Equal(t, "ask", events[0].FunctionID)
	require.Len(t, events[0].Tools, 2)

	// Length change is a change.
	events = topo.Apply(&registry.HeartbeatResponse{
		AgentID: "a",
		LlmTools: map[string][]registry.LlmToolEntry{
			"ask": {{Name: "t1", Capability: "c1", Endpoint: "http://t:1", AgentID: "a1"}},
		},
	})
	require.Len(t, events, 1)
	require.Len(t, events[0].Tools, 1)

	// Any element-wise field difference is a change.
	events = topo.Apply(&registry.HeartbeatResponse{
		AgentID: "a",
		LlmTools: map[string][]registry.LlmToolEntry{
			"ask": {{Name: "t1", Capability: "c1", Endpoint: "http://t:1", AgentID: "a1", Description: "now documented"}},
		},
	})
	require.Len(t, events, 1)
}

func TestTopology_LlmProviderDiff(t *testing.T) {
	topo := New(zap.NewNop())

	events := topo.Apply(&registry.HeartbeatResponse{
		AgentID: "a",
		LlmProviders: map[string]registry.LlmProviderEntry{
			"ask": {AgentID: "p1", Endpoint: "http://p:1", Name: "chat", Model: "m-4"},
		},
	})
	require.Len(t, events, 1)
	assert.Equal(t, types.EventLlmProviderAvailable, events[0].Type)
	require.NotNil(t, events[0].Provider)
	assert.Equal(t, "m-4", events[0].Provider.Model)

	// A model-only change does not re-announce the provider.
	events = topo.Apply(&registry.HeartbeatResponse{
		AgentID: "a",
		LlmProviders: map[string]registry.LlmProviderEntry{
			"ask": {AgentID: "p1", Endpoint: "http://p:1", Name: "chat", Model: "m-5"},
		},
	})
	assert.Empty(t, events)

	// An endpoint change does.
	events = topo.Apply(&registry.HeartbeatResponse{
		AgentID: "a",
		LlmProviders: map[string]registry.LlmProviderEntry{
			"ask": {AgentID: "p1", Endpoint: "http://p:2", Name: "chat", Model: "m-5"},
		},
	})
	require.Len(t, events, 1)
}

func TestTopology_FlatDependencies(t *testing.T) {
	topo := New(zap.NewNop())

	topo.Apply(depResponse(map[string][]registry.ResolvedDependency{
		"f": {
			{AgentID: "a1", Endpoint: "http://x", FunctionName: "fast", Capability: "c", Status: "healthy"},
			{AgentID: "a2", Endpoint: "http://y", FunctionName: "slow", Capability: "c", Status: "healthy"},
		},
	}))

	// Last writer per batch wins for the display view.
	flat := topo.FlatDependencies()
	assert.Equal(t, map[string]string{"c": "http://y"}, flat)

	// The returned map is a copy.
	flat["c"] = "mutated"
	assert.Equal(t, "http://y", topo.FlatDependencies()["c"])
}
