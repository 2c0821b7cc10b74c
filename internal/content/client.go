// Package content implements the GraphQL client for the content platform.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/readlater-relay/internal/metrics"
)

// Config controls client behavior.
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// Client speaks the platform's GraphQL wire protocol: a single POST
// endpoint, the API key sent verbatim in the Authorization header, and an
// envelope that can carry an errors list even on HTTP 200.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// New builds a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: newHTTPTransport(),
		},
		logger: logger,
	}
}

// GraphQLError is one entry of the envelope's errors list.
type GraphQLError struct {
	Message string   `json:"message"`
	Path    []string `json:"path,omitempty"`
}

// RemoteError reports a logical failure carried in the response envelope.
type RemoteError struct {
	Operation string
	Errors    []GraphQLError
}

// Error summarizes the remote error payload.
func (e *RemoteError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ge := range e.Errors {
		msgs = append(msgs, ge.Message)
	}
	return fmt.Sprintf("content service %s returned errors: %s", e.Operation, strings.Join(msgs, "; "))
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// do executes one GraphQL document and decodes envelope.data into out. A
// populated errors list yields a *RemoteError regardless of HTTP status.
func (c *Client) do(ctx context.Context, operation, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(request{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.cfg.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveRemoteCall(operation, "transport_error", time.Since(start))
		return fmt.Errorf("%s transport: %w", operation, err)
	}
	defer resp.Body.Close() //nolint:errcheck // response body close is best-effort

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveRemoteCall(operation, "transport_error", time.Since(start))
		return fmt.Errorf("read %s response: %w", operation, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		metrics.ObserveRemoteCall(operation, "bad_response", time.Since(start))
		return fmt.Errorf("decode %s response (status %d): %w", operation, resp.StatusCode, err)
	}

	if len(env.Errors) > 0 {
		metrics.ObserveRemoteCall(operation, "remote_error", time.Since(start))
		remoteErr := &RemoteError{Operation: operation, Errors: env.Errors}
		c.logger.Warn("content service logical error",
			zap.String("operation", operation),
			zap.Int("http_status", resp.StatusCode),
			zap.Error(remoteErr),
		)
		return remoteErr
	}
	if resp.StatusCode != http.StatusOK {
		metrics.ObserveRemoteCall(operation, "bad_status", time.Since(start))
		return fmt.Errorf("%s returned status %d", operation, resp.StatusCode)
	}

	metrics.ObserveRemoteCall(operation, "ok", time.Since(start))
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", operation, err)
	}
	return nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
