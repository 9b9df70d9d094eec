package registry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhyansraj/mcp-mesh/types"
)

func TestFastHeartbeatStatus_Predicates(t *testing.T) {
	assert.False(t, FastNoChanges.RequiresFullHeartbeat())
	assert.False(t, FastNoChanges.IsError())

	assert.True(t, FastTopologyChanged.RequiresFullHeartbeat())
	assert.True(t, FastAgentUnknown.RequiresFullHeartbeat())

	assert.True(t, FastRegistryError.IsError())
	assert.True(t, FastNetworkError.IsError())
	assert.False(t, FastTopologyChanged.IsError())
}

func TestNewHeartbeatRequest_Projection(t *testing.T) {
	spec := testSpec()
	spec.Tools[0].InputSchema = `{"type":"object"}`
	spec.Tools[0].LlmFilter = `not valid json {`
	spec.Tools[0].LlmProvider = ""

	req := NewHeartbeatRequest(spec, types.HealthDegraded)

	assert.Equal(t, "test-agent", req.AgentID)
	assert.Equal(t, "test-agent", req.Name)
	assert.Equal(t, "degraded", req.Status)
	require.Len(t, req.Tools, 1)

	tool := req.Tools[0]
	assert.Equal(t, json.RawMessage(`{"type":"object"}`), tool.InputSchema)
	// Unparseable opaque JSON is omitted rather than rejected.
	assert.Nil(t, tool.LlmFilter)
	assert.Nil(t, tool.LlmProvider)

	require.Len(t, tool.Dependencies, 1)
	assert.Equal(t, "date-service", tool.Dependencies[0].Capability)
	assert.Equal(t, []string{"+fast"}, tool.Dependencies[0].Tags)
}

func TestHeartbeatRequest_WireFieldNames(t *testing.T) {
	spec := testSpec()
	spec.Tools[0].InputSchema = `{"type":"object"}`

	data, err := json.Marshal(NewHeartbeatRequest(spec, types.HealthHealthy))
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))

	tools := wire["tools"].([]any)
	tool := tools[0].(map[string]any)
	// The schema field uses camelCase on the wire.
	_, ok := tool["inputSchema"]
	assert.True(t, ok)
	_, ok = tool["input_schema"]
	assert.False(t, ok)
}

func TestHeartbeatResponse_Parse(t *testing.T) {
	body := `{
		"status": "ok",
		"message": "",
		"agent_id": "a",
		"llm_tools": {
			"ask": [{"name":"get_date","capability":"date","endpoint":"http://d:1","agent_id":"d1","inputSchema":{"type":"object"}}]
		},
		"llm_providers": {
			"ask": {"agent_id":"p1","endpoint":"http://p:1","name":"chat","model":"m-4","vendor":"acme"}
		}
	}`

	var resp HeartbeatResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))

	require.Len(t, resp.LlmTools["ask"], 1)
	assert.Equal(t, "get_date", resp.LlmTools["ask"][0].Name)
	assert.JSONEq(t, `{"type":"object"}`, string(resp.LlmTools["ask"][0].InputSchema))

	provider := resp.LlmProviders["ask"]
	assert.Equal(t, "chat", provider.Name)
	assert.Equal(t, "m-4", provider.Model)
}
