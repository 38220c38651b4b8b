package completion

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/eleven-am/menu-capture/internal/shared"
)

const maxErrorBody = 4 << 10

type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	logger      *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		httpClient:  &http.Client{},
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		timeout:     timeout,
		logger:      logger.With("component", "completion"),
	}
}

func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Ready reports whether upstream calls can be made at all. Callers check it
// before doing any other work for a request.
func (c *Client) Ready() error {
	if !c.Configured() {
		return &shared.NotConfiguredError{Feature: "completion", Missing: "OPENAI_API_KEY"}
	}
	return nil
}

func (c *Client) Model() string {
	return c.model
}

// Stream opens a streaming chat completion. The returned Stream must be
// closed; closing it aborts the upstream request if it is still running.
func (c *Client) Stream(ctx context.Context, req Request) (*Stream, error) {
	if err := c.Ready(); err != nil {
		return nil, err
	}

	ctx, cancel := c.withTimeout(ctx)
	resp, err := c.send(ctx, req, true)
	if err != nil {
		cancel()
		return nil, err
	}

	c.logger.Debug("upstream stream opened", "model", c.model, "image_bytes", len(req.Image))
	return newStream(ctx, resp.Body, cancel), nil
}

// Complete performs the same request without streaming and returns the
// whole message text.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if err := c.Ready(); err != nil {
		return "", err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.send(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.Canceled) {
				return "", ctxErr
			}
			return "", &shared.UpstreamError{Op: "complete", Err: ctxErr}
		}
		return "", &shared.UpstreamError{Op: "complete", Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.Error != nil {
		return "", &shared.UpstreamError{Op: "complete", Err: errors.New(out.Error.Message)}
	}
	if len(out.Choices) == 0 {
		return "", &shared.UpstreamError{Op: "complete", Err: errors.New("no choices in response")}
	}

	return out.Choices[0].Message.Content, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

func (c *Client) send(ctx context.Context, req Request, stream bool) (*http.Response, error) {
	body, err := json.Marshal(c.buildRequest(req, stream))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
			return nil, ctxErr
		}
		return nil, &shared.UpstreamError{Op: "request", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("upstream rejected request",
			"status", resp.StatusCode,
			"body", strings.TrimSpace(string(detail)))
		return nil, &shared.UpstreamError{
			Op:         "request",
			StatusCode: resp.StatusCode,
			Err:        errors.New(http.StatusText(resp.StatusCode)),
		}
	}

	return resp, nil
}

func (c *Client) buildRequest(req Request, stream bool) chatRequest {
	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(req.Image)

	return chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: req.Prompt},
					{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
				},
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Stream:      stream,
	}
}
