package runtime

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dhyansraj/mcp-mesh/config"
	"github.com/dhyansraj/mcp-mesh/heartbeat"
	"github.com/dhyansraj/mcp-mesh/internal/metrics"
	"github.com/dhyansraj/mcp-mesh/internal/telemetry"
	"github.com/dhyansraj/mcp-mesh/registry"
	"github.com/dhyansraj/mcp-mesh/topology"
	"github.com/dhyansraj/mcp-mesh/types"
)

// Config controls the runtime.
type Config struct {
	// Heartbeat timing and thresholds. A positive spec
	// HeartbeatInterval overrides Heartbeat.Interval.
	Heartbeat heartbeat.Config

	// EventBuffer is the event queue capacity. When the host stalls
	// and the queue fills, further events are dropped: the next full
	// heartbeat re-derives state, so freshness beats completeness.
	EventBuffer int

	// CommandBuffer is the command queue capacity. Overflow surfaces
	// as a soft error (false) from the handle's send methods.
	CommandBuffer int

	// MetricsRegisterer enables Prometheus metrics when non-nil.
	// Kept opt-in so multiple runtimes in one process do not collide
	// on metric registration.
	MetricsRegisterer prometheus.Registerer

	// Telemetry configures the optional OTel SDK bootstrap.
	Telemetry telemetry.Config
}

// DefaultConfig returns the standard runtime configuration.
func DefaultConfig() Config {
	return Config{
		Heartbeat:     heartbeat.DefaultConfig(),
		EventBuffer:   100,
		CommandBuffer: 10,
	}
}

// Runtime owns the heartbeat loop for one agent. All of its fields are
// touched by exactly one goroutine: the loop spawned by Start.
type Runtime struct {
	spec      types.AgentSpec
	cfg       Config
	client    *registry.Client
	sm        *heartbeat.StateMachine
	topo      *topology.Topology
	state     *handleState
	events    chan types.MeshEvent
	commands  chan types.Command
	shutdown  chan struct{}
	collector *metrics.Collector
	providers *telemetry.Providers
	tracer    oteltrace.Tracer
	logger    *zap.Logger

	forceFullHeartbeat  bool
	registeredEventSent bool
}

// Start validates the spec, applies environment overrides, and spawns
// the runtime loop. The returned handle is the host's interface to the
// running agent. Construction failures (invalid spec, invalid registry
// URL) are the only fatal errors; everything after Start returns is
// handled inside the loop.
func Start(spec *types.AgentSpec, cfg Config, logger *zap.Logger) (*AgentHandle, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	owned := cloneSpec(spec)
	resolveSpec(&owned, logger)

	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultConfig().EventBuffer
	}
	if cfg.CommandBuffer <= 0 {
		cfg.CommandBuffer = DefaultConfig().CommandBuffer
	}

	hbConfig := cfg.Heartbeat
	if hbConfig.Interval <= 0 {
		hbConfig = heartbeat.DefaultConfig()
	}
	if owned.HeartbeatInterval > 0 {
		hbConfig.Interval = time.Duration(owned.HeartbeatInterval) * time.Second
	}
	cfg.Heartbeat = hbConfig

	runLogger := logger.With(
		zap.String("agent", owned.Name),
		zap.String("instance", uuid.NewString()),
	)

	client, err := registry.NewClient(owned.RegistryURL, runLogger)
	if err != nil {
		return nil, err
	}

	var collector *metrics.Collector
	if cfg.MetricsRegisterer != nil {
		collector = metrics.NewCollector("mcp_mesh", cfg.MetricsRegisterer, runLogger)
	}

	providers, err := telemetry.Init(cfg.Telemetry, runLogger)
	if err != nil {
		// Telemetry is ambient; a broken collector endpoint must not
		// keep the agent off the mesh.
		runLogger.Warn("telemetry init failed, continuing without it", zap.Error(err))
		providers = nil
	}

	state := newHandleState()
	r := &Runtime{
		spec:      owned,
		cfg:       cfg,
		client:    client,
		sm:        heartbeat.New(hbConfig, runLogger),
		topo:      topology.New(runLogger),
		state:     state,
		events:    make(chan types.MeshEvent, cfg.EventBuffer),
		commands:  make(chan types.Command, cfg.CommandBuffer),
		shutdown:  make(chan struct{}, 1),
		collector: collector,
		providers: providers,
		tracer:    otel.Tracer("github.com/dhyansraj/mcp-mesh/runtime"),
		logger:    runLogger,
	}

	handle := &AgentHandle{
		state:      state,
		events:     r.events,
		commands:   r.commands,
		shutdownCh: r.shutdown,
	}

	go r.run()

	return handle, nil
}

// run is the cooperative loop. Each iteration drains pending signals,
// asks the state machine for the next action, and dispatches it.
func (r *Runtime) run() {
	r.logger.Info("agent runtime started",
		zap.String("registry_url", config.Redact(config.KeyRegistryURL, r.spec.RegistryURL)),
		zap.Duration("interval", r.cfg.Heartbeat.Interval))

	for {
		r.drainSignals()

		if r.sm.IsShuttingDown() {
			break
		}

		if r.forceFullHeartbeat {
			r.forceFullHeartbeat = false
			r.sendFullHeartbeat()
			continue
		}

		action := r.sm.NextAction()
		switch action.Kind {
		case heartbeat.ActionSendFull:
			r.sendFullHeartbeat()
		case heartbeat.ActionSendFast:
			r.sendFastHeartbeat()
		case heartbeat.ActionWait:
			r.sleep(action.Wait)
		case heartbeat.ActionRetry:
			r.logger.Warn("reconnect attempt",
				zap.Uint32("attempt", action.Attempt),
				zap.Duration("backoff", action.Backoff))
			r.sleep(action.Backoff)
			if !r.sm.IsShuttingDown() {
				r.sendFullHeartbeat()
			}
		case heartbeat.ActionNone:
			// Only reachable in the shutting-down state.
		}

		if r.sm.IsShuttingDown() {
			break
		}
	}

	r.finish()
}

// finish performs the shutdown path: one best-effort unregister, the
// final shutdown event, and resource teardown.
func (r *Runtime) finish() {
	if err := r.client.Unregister(context.Background(), r.spec.AgentID()); err != nil {
		r.logger.Debug("best-effort unregister failed", zap.Error(err))
	}

	r.emit(types.NewShutdownEvent())
	close(r.events)

	if err := r.providers.Shutdown(context.Background()); err != nil {
		r.logger.Debug("telemetry shutdown failed", zap.Error(err))
	}

	r.logger.Info("agent runtime stopped")
}

// drainSignals applies all pending shutdown and command signals without
// blocking, and picks up health writes from the host.
func (r *Runtime) drainSignals() {
	for {
		select {
		case <-r.shutdown:
			r.sm.Shutdown()
		case cmd := <-r.commands:
			r.applyCommand(cmd)
		default:
			r.observeHealth()
			return
		}
	}
}

// observeHealth reflects the host's reported health into the state
// machine and announces changes.
func (r *Runtime) observeHealth() {
	health := r.state.healthStatus()
	if r.sm.SetHealthStatus(health) {
		r.emit(types.NewHealthStatusChangedEvent(health))
	}
}

func (r *Runtime) applyCommand(cmd types.Command) {
	switch cmd.Type {
	case types.CommandUpdateTools:
		if toolsEqual(r.spec.Tools, cmd.Tools) {
			r.logger.Debug("update_tools is a no-op")
			return
		}
		r.spec.Tools = cloneTools(cmd.Tools)
		r.forceFullHeartbeat = true
		r.logger.Info("tool list updated", zap.Int("tools", len(cmd.Tools)))

	case types.CommandUpdatePort:
		if r.spec.HTTPPort == cmd.Port {
			return
		}
		r.spec.HTTPPort = cmd.Port
		r.forceFullHeartbeat = true
		r.logger.Info("http port updated", zap.Uint16("port", cmd.Port))
	}
}

// sleep waits for d, waking early on a shutdown signal or a pending
// command.
func (r *Runtime) sleep(d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-r.shutdown:
		r.sm.Shutdown()
	case cmd := <-r.commands:
		r.applyCommand(cmd)
	}
}

func (r *Runtime) sendFastHeartbeat() {
	start := time.Now()
	status := r.client.FastHeartbeat(context.Background(), r.spec.AgentID())
	r.collector.RecordHeartbeat("fast", status.String(), time.Since(start).Seconds())

	prev := r.sm.State()
	r.sm.OnFastHeartbeatResult(status)
	r.recordTransition(prev)

	if status.RequiresFullHeartbeat() {
		r.sendFullHeartbeat()
	}
}

func (r *Runtime) sendFullHeartbeat() {
	ctx, span := r.tracer.Start(context.Background(), "mesh.heartbeat.full",
		oteltrace.WithAttributes(attribute.String("mesh.agent_id", r.spec.AgentID())))
	defer span.End()

	request := registry.NewHeartbeatRequest(&r.spec, r.sm.HealthStatus())

	start := time.Now()
	response, err := r.client.SendHeartbeat(ctx, request)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		r.collector.RecordHeartbeat("full", "failure", elapsed)
		span.RecordError(err)

		prev := r.sm.State()
		r.sm.OnFullHeartbeatFailure(err.Error())
		r.emit(types.NewRegistrationFailedEvent(err.Error()))
		r.recordTransition(prev)
		return
	}

	r.collector.RecordHeartbeat("full", "success", elapsed)

	prev := r.sm.State()
	r.sm.OnFullHeartbeatSuccess()
	r.recordTransition(prev)
	if prev == heartbeat.StateReconnecting {
		r.emit(types.NewRegistryConnectedEvent())
	}

	r.state.setAgentID(response.AgentID)

	if !r.registeredEventSent {
		r.registeredEventSent = true
		r.emit(types.NewAgentRegisteredEvent(r.spec.AgentID()))
	}

	// Diff under exclusive ownership, then publish the shared view once
	// per batch to keep lock traffic low.
	for _, event := range r.topo.Apply(response) {
		r.emit(event)
	}
	r.state.setDependencies(r.topo.FlatDependencies())
	r.collector.SetDependenciesResolved(len(r.topo.Dependencies()))
}

// recordTransition compares the state before and after a state machine
// input, announcing disconnects and counting transitions.
func (r *Runtime) recordTransition(prev heartbeat.State) {
	current := r.sm.State()
	if current == prev {
		return
	}
	r.collector.RecordStateTransition(string(prev), string(current))
	if current == heartbeat.StateReconnecting {
		r.emit(types.NewRegistryDisconnectedEvent(
			fmt.Sprintf("missed %d consecutive heartbeats", r.cfg.Heartbeat.MissedThreshold)))
	}
}

// emit delivers an event to the host queue, dropping instead of
// blocking when the host has stalled.
func (r *Runtime) emit(event types.MeshEvent) {
	select {
	case r.events <- event:
		r.collector.RecordEventEmitted(string(event.Type))
	default:
		r.collector.RecordEventDropped()
		r.logger.Warn("event queue full, dropping event",
			zap.String("event_type", string(event.Type)))
	}
}

// resolveSpec applies the shared ENV > param > default chain to the
// spec fields that have config keys.
func resolveSpec(spec *types.AgentSpec, logger *zap.Logger) {
	resolver := config.NewResolver(logger)

	if v, ok := resolver.Value(config.KeyAgentName, spec.Name); ok {
		spec.Name = v
	}
	if v, ok := resolver.Value(config.KeyRegistryURL, spec.RegistryURL); ok {
		spec.RegistryURL = v
	}
	if v, ok := resolver.Value(config.KeyHTTPHost, spec.HTTPHost); ok {
		spec.HTTPHost = v
	}
	if v, ok := resolver.Value(config.KeyNamespace, spec.Namespace); ok {
		spec.Namespace = v
	}

	var portParam *int64
	if spec.HTTPPort != 0 {
		p := int64(spec.HTTPPort)
		portParam = &p
	}
	if v, ok := resolver.Int(config.KeyHTTPPort, portParam); ok && v >= 0 && v <= 65535 {
		spec.HTTPPort = uint16(v)
	}

	// The interval default stays with the heartbeat config so a caller
	// config can still lower it; only explicit ENV or spec values land here.
	if os.Getenv(config.KeyHealthInterval.EnvVar()) != "" || spec.HeartbeatInterval != 0 {
		var intervalParam *int64
		if spec.HeartbeatInterval != 0 {
			i := int64(spec.HeartbeatInterval)
			intervalParam = &i
		}
		if v, ok := resolver.Int(config.KeyHealthInterval, intervalParam); ok && v >= 1 {
			spec.HeartbeatInterval = uint64(v)
		}
	}
}

func cloneSpec(spec *types.AgentSpec) types.AgentSpec {
	owned := *spec
	owned.Tools = cloneTools(spec.Tools)
	owned.LlmAgents = append([]types.LlmAgentSpec(nil), spec.LlmAgents...)
	return owned
}

func cloneTools(tools []types.ToolSpec) []types.ToolSpec {
	out := append([]types.ToolSpec(nil), tools...)
	for i := range out {
		out[i].Tags = append([]string(nil), out[i].Tags...)
		out[i].Dependencies = append([]types.DependencySpec(nil), out[i].Dependencies...)
		for j := range out[i].Dependencies {
			out[i].Dependencies[j].Tags = append([]string(nil), out[i].Dependencies[j].Tags...)
		}
	}
	return out
}

// toolsEqual compares tool lists the way update_tools diffs them:
// length, then element-wise on function name, capability, version, and
// each dependency's capability, tags, and version.
func toolsEqual(a, b []types.ToolSpec) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].FunctionName != b[i].FunctionName ||
			a[i].Capability != b[i].Capability ||
			a[i].Version != b[i].Version ||
			len(a[i].Dependencies) != len(b[i].Dependencies) {
			return false
		}
		for j := range a[i].Dependencies {
			if !dependencyEqual(a[i].Dependencies[j], b[i].Dependencies[j]) {
				return false
			}
		}
	}
	return true
}

func dependencyEqual(a, b types.DependencySpec) bool {
	if a.Capability != b.Capability || a.Version != b.Version || len(a.Tags) != len(b.Tags) {
		return false
	}
	for i := range a.Tags {
		if a.Tags[i] != b.Tags[i] {
			return false
		}
	}
	return true
}
