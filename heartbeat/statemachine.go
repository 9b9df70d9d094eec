package heartbeat

import (
	"time"

	"go.uber.org/zap"

	"github.com/dhyansraj/mcp-mesh/registry"
	"github.com/dhyansraj/mcp-mesh/types"
)

// State of the heartbeat state machine.
type State string

const (
	// StateUnregistered means the agent is not yet known to the registry.
	StateUnregistered State = "unregistered"
	// StateRegistering means a registration is in flight.
	StateRegistering State = "registering"
	// StateHealthy means the agent is registered and healthy.
	StateHealthy State = "healthy"
	// StateDegraded means the agent is registered with degraded health.
	StateDegraded State = "degraded"
	// StateReconnecting means the registry is unreachable and the
	// machine is backing off between registration attempts.
	StateReconnecting State = "reconnecting"
	// StateShuttingDown means shutdown was requested.
	StateShuttingDown State = "shutting_down"
)

// ActionKind identifies the next action the runtime should perform.
type ActionKind int

const (
	// ActionSendFull requests a full POST heartbeat.
	ActionSendFull ActionKind = iota
	// ActionSendFast requests a HEAD heartbeat check.
	ActionSendFast
	// ActionWait requests sleeping for Action.Wait.
	ActionWait
	// ActionRetry requests sleeping for Action.Backoff, then a full heartbeat.
	ActionRetry
	// ActionNone means the loop should exit.
	ActionNone
)

// Action is the state machine's instruction to the runtime loop.
type Action struct {
	Kind    ActionKind
	Wait    time.Duration
	Attempt uint32
	Backoff time.Duration
}

// Config controls heartbeat timing and failure thresholds.
type Config struct {
	// Interval between heartbeats.
	Interval time.Duration
	// MaxRetries is carried in the configuration but not read by the
	// state machine: reconnect attempts continue, with capped backoff,
	// until a full heartbeat succeeds or shutdown is requested.
	MaxRetries uint32
	// BaseBackoff is the first reconnect backoff.
	BaseBackoff time.Duration
	// MaxBackoff caps the exponential backoff.
	MaxBackoff time.Duration
	// MissedThreshold is the number of consecutive failures before the
	// machine considers the connection lost.
	MissedThreshold uint32
}

// DefaultConfig returns the standard heartbeat configuration.
func DefaultConfig() Config {
	return Config{
		Interval:        5 * time.Second,
		MaxRetries:      5,
		BaseBackoff:     time.Second,
		MaxBackoff:      30 * time.Second,
		MissedThreshold: 4,
	}
}

// StateMachine tracks registration and failure state and decides the
// next heartbeat action. Owned exclusively by the runtime loop.
type StateMachine struct {
	state               State
	config              Config
	health              types.HealthStatus
	lastHeartbeat       time.Time
	consecutiveFailures uint32
	retryAttempt        uint32
	registered          bool
	heartbeatCount      uint64
	logger              *zap.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New creates a state machine in the unregistered state.
func New(config Config, logger *zap.Logger) *StateMachine {
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	if config.MissedThreshold == 0 {
		config.MissedThreshold = DefaultConfig().MissedThreshold
	}
	if config.BaseBackoff <= 0 {
		config.BaseBackoff = DefaultConfig().BaseBackoff
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = DefaultConfig().MaxBackoff
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateMachine{
		state:  StateUnregistered,
		config: config,
		health: types.HealthHealthy,
		logger: logger.With(zap.String("component", "heartbeat")),
		now:    time.Now,
	}
}

// State returns the current state.
func (m *StateMachine) State() State {
	return m.state
}

// HealthStatus returns the current health status.
func (m *StateMachine) HealthStatus() types.HealthStatus {
	return m.health
}

// SetHealthStatus records a health status write from the host.
// Returns true when the status actually changed.
func (m *StateMachine) SetHealthStatus(status types.HealthStatus) bool {
	if m.health == status {
		return false
	}
	m.logger.Info("health status changed",
		zap.String("from", m.health.String()), zap.String("to", status.String()))
	m.health = status
	return true
}

// HeartbeatCount returns the number of successful heartbeats.
func (m *StateMachine) HeartbeatCount() uint64 {
	return m.heartbeatCount
}

// IsRegistered reports whether the agent is currently registered.
func (m *StateMachine) IsRegistered() bool {
	return m.registered
}

// NextAction decides what the runtime should do next.
func (m *StateMachine) NextAction() Action {
	switch m.state {
	case StateUnregistered:
		return Action{Kind: ActionSendFull}
	case StateRegistering:
		return Action{Kind: ActionWait, Wait: 100 * time.Millisecond}
	case StateHealthy, StateDegraded:
		if remaining := m.untilNextHeartbeat(); remaining > 0 {
			return Action{Kind: ActionWait, Wait: remaining}
		}
		return Action{Kind: ActionSendFast}
	case StateReconnecting:
		return Action{
			Kind:    ActionRetry,
			Attempt: m.retryAttempt,
			Backoff: m.backoff(),
		}
	default: // StateShuttingDown
		return Action{Kind: ActionNone}
	}
}

// OnFastHeartbeatResult applies a fast heartbeat outcome and returns the
// immediate follow-up action.
func (m *StateMachine) OnFastHeartbeatResult(status registry.FastHeartbeatStatus) Action {
	switch status {
	case registry.FastNoChanges:
		m.lastHeartbeat = m.now()
		m.consecutiveFailures = 0
		m.heartbeatCount++
		return Action{Kind: ActionWait, Wait: m.config.Interval}

	case registry.FastTopologyChanged:
		m.logger.Debug("topology changed, full heartbeat required")
		return Action{Kind: ActionSendFull}

	case registry.FastAgentUnknown:
		m.logger.Warn("agent unknown to registry, re-registering")
		m.registered = false
		m.state = StateUnregistered
		return Action{Kind: ActionSendFull}

	default: // FastRegistryError, FastNetworkError
		m.consecutiveFailures++
		m.logger.Warn("fast heartbeat error",
			zap.Stringer("status", status),
			zap.Uint32("consecutive_failures", m.consecutiveFailures))
		if m.consecutiveFailures >= m.config.MissedThreshold {
			m.state = StateReconnecting
			m.retryAttempt = 0
		}
		return Action{Kind: ActionWait, Wait: m.config.Interval}
	}
}

// OnFullHeartbeatSuccess applies a successful full heartbeat.
func (m *StateMachine) OnFullHeartbeatSuccess() {
	m.lastHeartbeat = m.now()
	m.consecutiveFailures = 0
	m.retryAttempt = 0
	m.registered = true
	m.heartbeatCount++

	switch m.health {
	case types.HealthDegraded, types.HealthUnhealthy:
		m.state = StateDegraded
	default:
		m.state = StateHealthy
	}
}

// OnFullHeartbeatFailure applies a failed full heartbeat.
func (m *StateMachine) OnFullHeartbeatFailure(errMsg string) {
	m.consecutiveFailures++
	m.retryAttempt++
	m.logger.Warn("full heartbeat failed",
		zap.String("error", errMsg),
		zap.Uint32("consecutive_failures", m.consecutiveFailures))

	if m.consecutiveFailures >= m.config.MissedThreshold {
		m.state = StateReconnecting
	}
}

// Shutdown moves the machine to the terminal state.
func (m *StateMachine) Shutdown() {
	m.state = StateShuttingDown
}

// IsShuttingDown reports whether shutdown was requested.
func (m *StateMachine) IsShuttingDown() bool {
	return m.state == StateShuttingDown
}

func (m *StateMachine) untilNextHeartbeat() time.Duration {
	if m.lastHeartbeat.IsZero() {
		return 0
	}
	elapsed := m.now().Sub(m.lastHeartbeat)
	if elapsed >= m.config.Interval {
		return 0
	}
	return m.config.Interval - elapsed
}

func (m *StateMachine) backoff() time.Duration {
	backoff := m.config.BaseBackoff << m.retryAttempt
	if backoff <= 0 || backoff > m.config.MaxBackoff {
		return m.config.MaxBackoff
	}
	return backoff
}
