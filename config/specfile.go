package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dhyansraj/mcp-mesh/types"
)

// LoadSpecFile reads an AgentSpec from a YAML or JSON file.
//
// The format is chosen by extension: .json parses as JSON, everything
// else as YAML. The loaded spec is validated before it is returned.
func LoadSpecFile(path string) (*types.AgentSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spec file: %w", err)
	}

	var spec types.AgentSpec
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &spec); err != nil {
			return nil, types.NewError(types.ErrInvalidSpec, "spec file is not valid JSON").WithCause(err)
		}
	} else {
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return nil, types.NewError(types.ErrInvalidSpec, "spec file is not valid YAML").WithCause(err)
		}
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// ParseSpecJSON parses an AgentSpec from a JSON document, the shape
// language bindings hand to the core.
func ParseSpecJSON(data []byte) (*types.AgentSpec, error) {
	var spec types.AgentSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, types.NewError(types.ErrInvalidSpec, "spec is not valid JSON").WithCause(err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}
