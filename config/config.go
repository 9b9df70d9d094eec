package config

import (
	"net"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Key is a named configuration key supported by the runtime core.
type Key string

const (
	// KeyRegistryURL is the mesh registry base URL.
	KeyRegistryURL Key = "registry_url"
	// KeyHTTPHost is the host announced to the registry.
	KeyHTTPHost Key = "http_host"
	// KeyHTTPPort is the announced HTTP port.
	KeyHTTPPort Key = "http_port"
	// KeyNamespace isolates agents within the mesh.
	KeyNamespace Key = "namespace"
	// KeyAgentName is the agent name.
	KeyAgentName Key = "agent_name"
	// KeyAgentID is the runtime-assigned agent identifier.
	KeyAgentID Key = "agent_id"
	// KeyHealthInterval is the heartbeat interval in seconds.
	KeyHealthInterval Key = "health_interval"
	// KeyDistributedTracingEnabled toggles trace publication.
	KeyDistributedTracingEnabled Key = "distributed_tracing_enabled"
	// KeyRedisURL is the Redis URL used by the trace publisher.
	KeyRedisURL Key = "redis_url"
)

// EnvVar returns the environment variable name for this key.
// The names are part of the external contract.
func (k Key) EnvVar() string {
	switch k {
	case KeyRegistryURL:
		return "MCP_MESH_REGISTRY_URL"
	case KeyHTTPHost:
		return "MCP_MESH_HTTP_HOST"
	case KeyHTTPPort:
		return "MCP_MESH_HTTP_PORT"
	case KeyNamespace:
		return "MCP_MESH_NAMESPACE"
	case KeyAgentName:
		return "MCP_MESH_AGENT_NAME"
	case KeyAgentID:
		return "MCP_MESH_AGENT_ID"
	case KeyHealthInterval:
		return "MCP_MESH_HEALTH_INTERVAL"
	case KeyDistributedTracingEnabled:
		return "MCP_MESH_DISTRIBUTED_TRACING_ENABLED"
	case KeyRedisURL:
		return "REDIS_URL"
	default:
		return ""
	}
}

// defaultValue returns the built-in default, if the key has one.
// KeyHTTPHost has no default: a missing value triggers IP auto-detection.
func (k Key) defaultValue() (string, bool) {
	switch k {
	case KeyRegistryURL:
		return "http://localhost:8000", true
	case KeyNamespace:
		return "default", true
	case KeyHealthInterval:
		return "5", true
	case KeyDistributedTracingEnabled:
		return "false", true
	case KeyRedisURL:
		return "redis://localhost:6379", true
	default:
		return "", false
	}
}

// Sensitive reports whether the key's value must be redacted in logs.
func (k Key) Sensitive() bool {
	return k == KeyRegistryURL || k == KeyRedisURL
}

// KeyFromName parses a key from its string name. Unknown names return false.
func KeyFromName(name string) (Key, bool) {
	switch Key(strings.ToLower(name)) {
	case KeyRegistryURL, KeyHTTPHost, KeyHTTPPort, KeyNamespace, KeyAgentName,
		KeyAgentID, KeyHealthInterval, KeyDistributedTracingEnabled, KeyRedisURL:
		return Key(strings.ToLower(name)), true
	default:
		return "", false
	}
}

// Resolver performs configuration lookups with the shared priority chain.
type Resolver struct {
	logger *zap.Logger
}

// NewResolver creates a Resolver. A nil logger is replaced with a nop logger.
func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger.With(zap.String("component", "config"))}
}

// Value resolves a string value: ENV > param > default. Empty values fall
// through. For KeyHTTPHost a missing value triggers IP auto-detection.
// Returns false when no value could be determined.
func (r *Resolver) Value(key Key, param string) (string, bool) {
	envVar := key.EnvVar()
	if v := os.Getenv(envVar); v != "" {
		r.logger.Debug("config resolved from env",
			zap.String("key", envVar), zap.String("value", Redact(key, v)))
		return v, true
	}

	if param != "" {
		r.logger.Debug("config resolved from param",
			zap.String("key", envVar), zap.String("value", Redact(key, param)))
		return param, true
	}

	if key == KeyHTTPHost {
		ip := AutoDetectExternalIP(r.logger)
		r.logger.Debug("config resolved from auto-detect",
			zap.String("key", envVar), zap.String("value", ip))
		return ip, true
	}

	if def, ok := key.defaultValue(); ok {
		r.logger.Debug("config resolved from default",
			zap.String("key", envVar), zap.String("value", Redact(key, def)))
		return def, true
	}

	r.logger.Warn("config has no value and no default", zap.String("key", envVar))
	return "", false
}

// ValueByName resolves a key by string name. Unknown keys log a warning
// and yield an empty string.
func (r *Resolver) ValueByName(name, param string) string {
	key, ok := KeyFromName(name)
	if !ok {
		r.logger.Warn("unknown config key", zap.String("key", name))
		return ""
	}
	v, _ := r.Value(key, param)
	return v
}

// Bool resolves a boolean value. Recognised ENV values are true/1/yes/on
// and false/0/no/off (case-insensitive); anything else falls through to
// the param and then the default, with a warning. A nil param is absent.
func (r *Resolver) Bool(key Key, param *bool) bool {
	envVar := key.EnvVar()
	if v := os.Getenv(envVar); v != "" {
		if b, ok := parseBool(v); ok {
			r.logger.Debug("config (bool) resolved from env",
				zap.String("key", envVar), zap.Bool("value", b))
			return b
		}
		r.logger.Warn("config (bool) has unrecognised env value, falling through",
			zap.String("key", envVar), zap.String("value", v))
	}

	if param != nil {
		r.logger.Debug("config (bool) resolved from param",
			zap.String("key", envVar), zap.Bool("value", *param))
		return *param
	}

	if def, ok := key.defaultValue(); ok {
		b, _ := parseBool(def)
		return b
	}
	return false
}

// Int resolves a signed 64-bit integer value. An unparseable ENV value
// falls through. Returns false when no value could be determined.
func (r *Resolver) Int(key Key, param *int64) (int64, bool) {
	envVar := key.EnvVar()
	if v := os.Getenv(envVar); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			r.logger.Debug("config (int) resolved from env",
				zap.String("key", envVar), zap.Int64("value", n))
			return n, true
		}
		r.logger.Warn("config (int) has unparseable env value, falling through",
			zap.String("key", envVar), zap.String("value", v))
	}

	if param != nil {
		r.logger.Debug("config (int) resolved from param",
			zap.String("key", envVar), zap.Int64("value", *param))
		return *param, true
	}

	if def, ok := key.defaultValue(); ok {
		if n, err := strconv.ParseInt(def, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// IsTracingEnabled reports whether distributed tracing is enabled.
func (r *Resolver) IsTracingEnabled() bool {
	return r.Bool(KeyDistributedTracingEnabled, nil)
}

// RedisURL resolves the Redis URL used by the trace publisher.
func (r *Resolver) RedisURL() string {
	v, _ := r.Value(KeyRedisURL, "")
	return v
}

func parseBool(s string) (value, ok bool) {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	default:
		return false, false
	}
}

// AutoDetectExternalIP discovers the IP of the outgoing network interface.
//
// It opens a UDP socket and connects it to a public address; no data is
// ever sent. Returns "localhost" when detection fails.
func AutoDetectExternalIP(logger *zap.Logger) string {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err != nil {
		logger.Debug("ip auto-detection failed, using localhost", zap.Error(err))
		return "localhost"
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP == nil {
		logger.Debug("ip auto-detection returned no address, using localhost")
		return "localhost"
	}

	ip := addr.IP.String()
	logger.Debug("auto-detected external ip", zap.String("ip", ip))
	return ip
}
