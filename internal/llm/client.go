// Package llm is a minimal client for OpenAI-compatible chat completion
// endpoints, with retries, rate limiting, and an optional response cache.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL points at OpenRouter, which proxies many providers
// behind one OpenAI-compatible endpoint.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Options configures a Client. Zero values fall back to sane defaults.
type Options struct {
	BaseURL           string
	APIKey            string
	Model             string
	MaxTokens         int
	Temperature       float64
	Timeout           time.Duration
	MaxAttempts       int
	BaseDelay         time.Duration
	RequestsPerSecond float64
	Cache             *Cache
}

// Client calls a chat completions API.
type Client struct {
	http        *http.Client
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	maxAttempts int
	baseDelay   time.Duration
	limiter     *rpsLimiter
	cache       *Cache
}

// Request is one completion request. Model, MaxTokens, and Temperature
// override the client defaults when set. A zero Temperature means "use
// the client default"; an explicit 0.0 is not representable per request
// and must be configured on the client instead.
type Request struct {
	System      string
	Prompt      string
	Model       string
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Usage reports the provider's token accounting.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is one completion result.
type Response struct {
	Text         string
	FinishReason string
	Usage        Usage
	Cached       bool
}

// ModelInfo describes one model the provider serves.
type ModelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewClient creates a client. The API key may be empty; requests will
// then fail with ErrAuth when the provider requires one.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 500 * time.Millisecond
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4000
	}
	return &Client{
		http:        &http.Client{Timeout: opts.Timeout},
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		apiKey:      opts.APIKey,
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.BaseDelay,
		limiter:     newRPSLimiter(opts.RequestsPerSecond, 1),
		cache:       opts.Cache,
	}
}

// Close stops the limiter's refill goroutine.
func (c *Client) Close() {
	c.limiter.Stop()
}

// Model returns the client's default model.
func (c *Client) Model() string { return c.model }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	TopP        float64       `json:"top_p,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one completion request, retrying transient failures with
// exponential backoff. It always goes to the network; see CachedComplete.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	c.applyDefaults(&req)
	return c.withRetry(ctx, func(ctx context.Context) (*Response, error) {
		return c.complete(ctx, req)
	})
}

// CachedComplete wraps Complete with the response cache: an unexpired entry
// under the request's fingerprint returns without a network call, a miss
// completes and stores the fresh response. Without a configured cache it
// behaves exactly like Complete.
func (c *Client) CachedComplete(ctx context.Context, req Request) (*Response, error) {
	c.applyDefaults(&req)
	if c.cache == nil {
		return c.withRetry(ctx, func(ctx context.Context) (*Response, error) {
			return c.complete(ctx, req)
		})
	}

	key := Fingerprint(req)
	if resp, ok := c.cache.Get(key); ok {
		cached := *resp
		cached.Cached = true
		return &cached, nil
	}

	resp, err := c.withRetry(ctx, func(ctx context.Context) (*Response, error) {
		return c.complete(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	c.cache.Put(key, resp)
	return resp, nil
}

func (c *Client) applyDefaults(req *Request) {
	if req.Model == "" {
		req.Model = c.model
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = c.maxTokens
	}
	if req.Temperature == 0 {
		req.Temperature = c.temperature
	}
}

func (c *Client) complete(ctx context.Context, req Request) (*Response, error) {
	var messages []chatMessage
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}

	raw, err := c.post(ctx, "/chat/completions", body)
	if err != nil {
		return nil, err
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(out.Choices) == 0 {
		if out.Error != nil {
			return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, out.Error.Message)
		}
		return nil, fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}
	return &Response{
		Text:         out.Choices[0].Message.Content,
		FinishReason: out.Choices[0].FinishReason,
		Usage:        out.Usage,
	}, nil
}

// Models lists the models the endpoint serves.
func (c *Client) Models(ctx context.Context) ([]ModelInfo, error) {
	raw, err := c.get(ctx, "/models")
	if err != nil {
		return nil, err
	}
	var out struct {
		Data []ModelInfo `json:"data"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return out.Data, nil
}

// Ping verifies the endpoint is reachable and the key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "/models")
	return err
}

func (c *Client) post(ctx context.Context, path string, body any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(b))
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		var ue interface{ Timeout() bool }
		if errors.As(err, &ue) && ue.Timeout() {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, nil
	}
	return nil, c.statusError(resp, raw)
}

// statusError maps HTTP failures onto the package's sentinel errors.
// Auth and client errors are permanent; throttling and server errors
// are left retryable.
func (c *Client) statusError(resp *http.Response, body []byte) error {
	const max = 512
	if len(body) > max {
		body = body[:max]
	}
	detail := strings.TrimSpace(string(body))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return NewPermanentError(fmt.Errorf("%w: %s", ErrAuth, detail))
	case resp.StatusCode == http.StatusTooManyRequests:
		err := fmt.Errorf("%w: %s", ErrRateLimited, detail)
		if delay := retryAfter(resp.Header.Get("Retry-After")); delay > 0 {
			return &rateLimitError{err: err, retryAfter: delay}
		}
		return err
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d: %s", ErrServiceUnavailable, resp.StatusCode, detail)
	default:
		return NewPermanentError(fmt.Errorf("unexpected status %d: %s", resp.StatusCode, detail))
	}
}

// rateLimitError carries the provider's requested backoff.
type rateLimitError struct {
	err        error
	retryAfter time.Duration
}

func (e *rateLimitError) Error() string { return e.err.Error() }
func (e *rateLimitError) Unwrap() error { return e.err }

func retryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
