// Package completion implements the completion-service client used to
// generate annotation text.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/readlater-relay/internal/metrics"
	"github.com/JakeFAU/readlater-relay/internal/relay"
)

// Config controls client behavior.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client speaks the chat-completions wire shape: a model identifier,
// free-form settings, and a message list in; generated text plus usage
// metadata out.
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
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage relay.TokenUsage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one completion request and returns the first choice.
func (c *Client) Complete(ctx context.Context, req relay.CompletionRequest) (relay.CompletionResult, error) {
	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}
	payload := map[string]any{
		"model":    model,
		"messages": req.Messages,
	}
	for k, v := range req.Settings {
		payload[k] = v
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return relay.CompletionResult{}, fmt.Errorf("marshal completion request: %w", err)
	}

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return relay.CompletionResult{}, fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return relay.CompletionResult{}, fmt.Errorf("completion transport: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // response body close is best-effort

	var decoded completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return relay.CompletionResult{}, fmt.Errorf("decode completion response (status %d): %w", resp.StatusCode, err)
	}
	if decoded.Error != nil {
		return relay.CompletionResult{}, fmt.Errorf("completion service error: %s", decoded.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return relay.CompletionResult{}, fmt.Errorf("completion service returned status %d", resp.StatusCode)
	}
	if len(decoded.Choices) == 0 || decoded.Choices[0].Message.Content == "" {
		return relay.CompletionResult{}, fmt.Errorf("completion service returned no text")
	}

	metrics.ObserveCompletionTokens(decoded.Usage.PromptTokens, decoded.Usage.CompletionTokens)
	c.logger.Debug("completion generated",
		zap.String("model", model),
		zap.Int("total_tokens", decoded.Usage.TotalTokens),
		zap.Duration("duration", time.Since(start)),
	)
	return relay.CompletionResult{
		Text:  decoded.Choices[0].Message.Content,
		Usage: decoded.Usage,
	}, nil
}
