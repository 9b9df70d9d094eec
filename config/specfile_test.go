package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhyansraj/mcp-mesh/types"
)

func writeSpecFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSpecFile_YAML(t *testing.T) {
	path := writeSpecFile(t, "agent.yaml", `
name: weather-agent
registry_url: http://localhost:8000
version: 1.2.0
agent_type: mcp_agent
heartbeat_interval: 10
tools:
  - function_name: get_weather
    capability: weather
    dependencies:
      - capability: geo
        tags: ["+fast"]
`)

	spec, err := LoadSpecFile(path)
	require.NoError(t, err)

	assert.Equal(t, "weather-agent", spec.Name)
	assert.Equal(t, types.AgentTypeMCP, spec.AgentType)
	assert.Equal(t, uint64(10), spec.HeartbeatInterval)
	require.Len(t, spec.Tools, 1)
	require.Len(t, spec.Tools[0].Dependencies, 1)
	assert.Equal(t, []string{"+fast"}, spec.Tools[0].Dependencies[0].Tags)
}

func TestLoadSpecFile_JSON(t *testing.T) {
	path := writeSpecFile(t, "agent.json",
		`{"name":"a","registry_url":"http://r","tools":[{"function_name":"f","capability":"c"}]}`)

	spec, err := LoadSpecFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a", spec.Name)
	require.Len(t, spec.Tools, 1)
}

func TestLoadSpecFile_Invalid(t *testing.T) {
	t.Run("bad json", func(t *testing.T) {
		path := writeSpecFile(t, "agent.json", `{"name":`)
		_, err := LoadSpecFile(path)
		var typed *types.Error
		require.ErrorAs(t, err, &typed)
		assert.Equal(t, types.ErrInvalidSpec, typed.Code)
	})

	t.Run("fails validation", func(t *testing.T) {
		path := writeSpecFile(t, "agent.yaml", `registry_url: http://r`)
		_, err := LoadSpecFile(path)
		var typed *types.Error
		require.ErrorAs(t, err, &typed)
		assert.Equal(t, types.ErrInvalidSpec, typed.Code)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSpecFile(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}

func TestParseSpecJSON(t *testing.T) {
	spec, err := ParseSpecJSON([]byte(`{"name":"a","registry_url":"http://r"}`))
	require.NoError(t, err)
	assert.Equal(t, "a", spec.AgentID())

	_, err = ParseSpecJSON([]byte(`not json`))
	require.Error(t, err)
}
