package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dhyansraj/mcp-mesh/internal/tlsutil"
	"github.com/dhyansraj/mcp-mesh/types"
)

const (
	connectTimeout = 10 * time.Second
	requestTimeout = 30 * time.Second
)

// Client communicates with the mesh registry over HTTP.
// One client is created per agent and is safe for the runtime's use.
type Client struct {
	http    *http.Client
	baseURL string
	logger  *zap.Logger
}

// NewClient creates a registry client for the given base URL.
// The URL is normalised (trailing slash stripped) and validated;
// an invalid URL is a construction failure surfaced to the caller.
func NewClient(registryURL string, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	base := strings.TrimRight(registryURL, "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		e := types.NewError(types.ErrInvalidURL, fmt.Sprintf("invalid registry url %q", registryURL))
		if err != nil {
			e = e.WithCause(err)
		}
		return nil, e
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, types.NewError(types.ErrInvalidURL,
			fmt.Sprintf("registry url %q: unsupported scheme %q", registryURL, u.Scheme))
	}

	return &Client{
		http:    tlsutil.Client(connectTimeout, requestTimeout),
		baseURL: base,
		logger:  logger.With(zap.String("component", "registry_client")),
	}, nil
}

// FastHeartbeat performs a HEAD heartbeat check for the agent.
// Network failures map to FastNetworkError; this call never errors.
func (c *Client) FastHeartbeat(ctx context.Context, agentID string) FastHeartbeatStatus {
	url := fmt.Sprintf("%s/heartbeat/%s", c.baseURL, agentID)

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		c.logger.Warn("fast heartbeat request build failed", zap.Error(err))
		return FastNetworkError
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("fast heartbeat failed",
			zap.String("agent_id", agentID), zap.Error(err))
		return FastNetworkError
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	status := FastStatusFromCode(resp.StatusCode)
	c.logger.Debug("fast heartbeat",
		zap.String("agent_id", agentID),
		zap.Int("http_status", resp.StatusCode),
		zap.Stringer("status", status))
	return status
}

// SendHeartbeat performs a full POST heartbeat.
// Any 2xx status is success; other statuses return a typed error carrying
// the status code and body.
func (c *Client) SendHeartbeat(ctx context.Context, request *HeartbeatRequest) (*HeartbeatResponse, error) {
	url := c.baseURL + "/heartbeat"

	body, err := json.Marshal(request)
	if err != nil {
		return nil, types.NewError(types.ErrSerialization, "marshal heartbeat request").WithCause(err)
	}

	c.logger.Debug("sending full heartbeat",
		zap.String("agent_id", request.AgentID),
		zap.Int("tools", len(request.Tools)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, types.NewError(types.ErrNetwork, "build heartbeat request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrNetwork, "send heartbeat").WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewError(types.ErrNetwork, "read heartbeat response").WithCause(err).WithRetryable(true)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("heartbeat rejected",
			zap.String("agent_id", request.AgentID),
			zap.Int("http_status", resp.StatusCode))
		return nil, types.NewError(types.ErrRegistryRejected, string(respBody)).
			WithHTTPStatus(resp.StatusCode).
			WithRetryable(true)
	}

	var parsed HeartbeatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, types.NewError(types.ErrSerialization, "parse heartbeat response").WithCause(err)
	}

	c.logger.Info("heartbeat successful",
		zap.String("agent_id", request.AgentID),
		zap.Int("dependency_functions", len(parsed.DependenciesResolved)),
		zap.Int("llm_tool_functions", len(parsed.LlmTools)),
		zap.Int("llm_providers", len(parsed.LlmProviders)))

	return &parsed, nil
}

// Register projects the spec into a heartbeat request and sends it.
// Registration and heartbeat share the same wire shape.
func (c *Client) Register(ctx context.Context, spec *types.AgentSpec, health types.HealthStatus) (*HeartbeatResponse, error) {
	return c.SendHeartbeat(ctx, NewHeartbeatRequest(spec, health))
}

// Unregister removes the agent from the registry.
// 2xx and 404 both count as success (404 means already gone). Other
// failures are returned for logging but must not block shutdown.
func (c *Client) Unregister(ctx context.Context, agentID string) error {
	url := fmt.Sprintf("%s/agents/%s", c.baseURL, agentID)

	c.logger.Info("unregistering agent", zap.String("agent_id", agentID))

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return types.NewError(types.ErrNetwork, "build unregister request").WithCause(err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("unregister failed",
			zap.String("agent_id", agentID), zap.Error(err))
		return types.NewError(types.ErrNetwork, "unregister agent").WithCause(err)
	}
	defer resp.Body.Close()

	if (resp.StatusCode >= 200 && resp.StatusCode < 300) || resp.StatusCode == 404 {
		c.logger.Info("agent unregistered",
			zap.String("agent_id", agentID), zap.Int("http_status", resp.StatusCode))
		return nil
	}

	body, _ := io.ReadAll(resp.Body)
	c.logger.Warn("unregister rejected",
		zap.String("agent_id", agentID),
		zap.Int("http_status", resp.StatusCode))
	return types.NewError(types.ErrRegistryRejected, string(body)).WithHTTPStatus(resp.StatusCode)
}
