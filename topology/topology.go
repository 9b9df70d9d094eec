package topology

import (
	"sort"

	"go.uber.org/zap"

	"github.com/dhyansraj/mcp-mesh/registry"
	"github.com/dhyansraj/mcp-mesh/types"
)

// DepKey identifies a resolved dependency positionally.
type DepKey struct {
	// Function is the requesting function name.
	Function string
	// Index is the 0-based position within the function's dependency list.
	Index int
}

// ResolvedDep is the tracked view of one resolved dependency.
type ResolvedDep struct {
	Capability   string
	Endpoint     string
	FunctionName string
	AgentID      string
}

// Topology is the authoritative in-memory view held by the runtime.
// It is owned exclusively by the runtime loop and must not be shared.
type Topology struct {
	deps         map[DepKey]ResolvedDep
	llmTools     map[string][]types.LlmToolInfo
	llmProviders map[string]types.ProviderInfo

	// flat is the capability -> endpoint convenience view rebuilt on
	// each Apply; last writer in event order wins.
	flat map[string]string

	logger *zap.Logger
}

// New creates an empty topology.
func New(logger *zap.Logger) *Topology {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Topology{
		deps:         make(map[DepKey]ResolvedDep),
		llmTools:     make(map[string][]types.LlmToolInfo),
		llmProviders: make(map[string]types.ProviderInfo),
		flat:         make(map[string]string),
		logger:       logger.With(zap.String("component", "topology")),
	}
}

// Apply diffs a heartbeat response against the current snapshot, updates
// the snapshot, and returns the resulting events in emission order:
// removals, then available/changed per requesting function, then LLM tool
// updates, then LLM provider updates. Identical responses produce no
// events. Response maps are unordered JSON objects, so functions are
// visited in sorted order to keep emission deterministic.
func (t *Topology) Apply(resp *registry.HeartbeatResponse) []types.MeshEvent {
	var events []types.MeshEvent
	events = append(events, t.applyDependencies(resp.DependenciesResolved)...)
	events = append(events, t.applyLlmTools(resp.LlmTools)...)
	events = append(events, t.applyLlmProviders(resp.LlmProviders)...)
	return events
}

// FlatDependencies returns a copy of the capability -> endpoint view.
func (t *Topology) FlatDependencies() map[string]string {
	out := make(map[string]string, len(t.flat))
	for k, v := range t.flat {
		out[k] = v
	}
	return out
}

// Dependencies returns a copy of the positional dependency map.
func (t *Topology) Dependencies() map[DepKey]ResolvedDep {
	out := make(map[DepKey]ResolvedDep, len(t.deps))
	for k, v := range t.deps {
		out[k] = v
	}
	return out
}

func (t *Topology) applyDependencies(resolved map[string][]registry.ResolvedDependency) []types.MeshEvent {
	newDeps := make(map[DepKey]ResolvedDep)
	functions := sortedKeys(resolved)

	for _, fn := range functions {
		for i, provider := range resolved[fn] {
			if !provider.Eligible() {
				continue
			}
			newDeps[DepKey{Function: fn, Index: i}] = ResolvedDep{
				Capability:   provider.Capability,
				Endpoint:     provider.Endpoint,
				FunctionName: provider.FunctionName,
				AgentID:      provider.AgentID,
			}
		}
	}

	var events []types.MeshEvent

	// Removals first, in deterministic key order.
	var removed []DepKey
	for key := range t.deps {
		if _, ok := newDeps[key]; !ok {
			removed = append(removed, key)
		}
	}
	sort.Slice(removed, func(i, j int) bool {
		if removed[i].Function != removed[j].Function {
			return removed[i].Function < removed[j].Function
		}
		return removed[i].Index < removed[j].Index
	})
	for _, key := range removed {
		old := t.deps[key]
		t.logger.Info("dependency unavailable",
			zap.String("capability", old.Capability),
			zap.String("function", key.Function),
			zap.Int("dep_index", key.Index))
		events = append(events, types.NewDependencyUnavailableEvent(old.Capability, key.Function, key.Index))
	}

	// Additions and changes, per requesting function in positional order.
	for _, fn := range functions {
		for i := range resolved[fn] {
			key := DepKey{Function: fn, Index: i}
			dep, ok := newDeps[key]
			if !ok {
				continue
			}
			old, existed := t.deps[key]
			switch {
			case !existed:
				t.logger.Info("dependency available",
					zap.String("capability", dep.Capability),
					zap.String("endpoint", dep.Endpoint),
					zap.String("function", fn),
					zap.Int("dep_index", i))
				events = append(events, types.NewDependencyAvailableEvent(
					dep.Capability, dep.Endpoint, dep.FunctionName, dep.AgentID, fn, i))
			case old.Capability != dep.Capability || old.Endpoint != dep.Endpoint || old.FunctionName != dep.FunctionName:
				t.logger.Info("dependency changed",
					zap.String("capability", dep.Capability),
					zap.String("endpoint", dep.Endpoint),
					zap.String("function", fn),
					zap.Int("dep_index", i))
				events = append(events, types.NewDependencyChangedEvent(
					dep.Capability, dep.Endpoint, dep.FunctionName, dep.AgentID, fn, i))
			}
		}
	}

	t.deps = newDeps

	// Rebuild the flat convenience view; last writer in event order wins.
	t.flat = make(map[string]string)
	for _, fn := range functions {
		for i := range resolved[fn] {
			if dep, ok := newDeps[DepKey{Function: fn, Index: i}]; ok {
				t.flat[dep.Capability] = dep.Endpoint
			}
		}
	}

	return events
}

func (t *Topology) applyLlmTools(llmTools map[string][]registry.LlmToolEntry) []types.MeshEvent {
	var events []types.MeshEvent

	for _, functionID := range sortedKeys(llmTools) {
		tools := make([]types.LlmToolInfo, 0, len(llmTools[functionID]))
		for _, entry := range llmTools[functionID] {
			tools = append(tools, types.LlmToolInfo{
				FunctionName: entry.Name,
				Capability:   entry.Capability,
				Description:  entry.Description,
				Endpoint:     entry.Endpoint,
				AgentID:      entry.AgentID,
				InputSchema:  string(entry.InputSchema),
			})
		}

		if llmToolsEqual(t.llmTools[functionID], tools) {
			continue
		}

		t.logger.Info("llm tools updated",
			zap.String("function_id", functionID),
			zap.Int("tools", len(tools)))
		t.llmTools[functionID] = tools
		events = append(events, types.NewLlmToolsUpdatedEvent(functionID, tools))
	}

	return events
}

func (t *Topology) applyLlmProviders(providers map[string]registry.LlmProviderEntry) []types.MeshEvent {
	var events []types.MeshEvent

	for _, functionID := range sortedKeys(providers) {
		entry := providers[functionID]
		provider := types.ProviderInfo{
			AgentID:      entry.AgentID,
			Endpoint:     entry.Endpoint,
			FunctionName: entry.Name,
			Model:        entry.Model,
			Capability:   entry.Capability,
			Vendor:       entry.Vendor,
			Version:      entry.Version,
		}

		old, existed := t.llmProviders[functionID]
		if existed && old.Endpoint == provider.Endpoint && old.FunctionName == provider.FunctionName {
			continue
		}

		t.logger.Info("llm provider available",
			zap.String("function_id", functionID),
			zap.String("endpoint", provider.Endpoint))
		t.llmProviders[functionID] = provider
		events = append(events, types.NewLlmProviderAvailableEvent(functionID, provider))
	}

	return events
}

func llmToolsEqual(a, b []types.LlmToolInfo) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
