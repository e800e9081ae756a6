package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"costa_listings/internal/adapters/observability"
	"costa_listings/internal/adapters/retry"
	"costa_listings/internal/domain"
)

const (
	apiVersion = "2023-06-01"
	service    = "anthropic"
	endpoint   = "messages"
	maxWait    = 30 * time.Second
)

var (
	ErrRateLimited  = errors.New("anthropic: rate limited")
	ErrOverloaded   = errors.New("anthropic: overloaded")
	ErrUnauthorized = errors.New("anthropic: unauthorized")
	ErrEmptyContent = errors.New("anthropic: response has no text content")
)

// APIError is the decoded error envelope {type:error, error:{type,message}}.
type APIError struct {
	Status  int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("anthropic: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("anthropic: status %d %s: %s", e.Status, e.Type, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests || e.Type == "rate_limit_error"
	case ErrOverloaded:
		return e.Status == 529 || e.Type == "overloaded_error"
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Type == "authentication_error"
	}
	return false
}

func (e *APIError) retryable() bool {
	switch e.Status {
	case http.StatusTooManyRequests, 529, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

type Options struct {
	Timeout    time.Duration // per attempt; default 120s
	MaxRetries int           // extra attempts after the first; negative means none
	HTTPClient *http.Client
}

type Client struct {
	base    string
	key     string
	model   string
	hc      *http.Client
	retries int
}

func New(base, key, model string, opts Options) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if base == "" {
		base = "https://api.anthropic.com"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		base:    strings.TrimRight(base, "/"),
		key:     key,
		model:   model,
		hc:      hc,
		retries: opts.MaxRetries,
	}, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type response struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type errorEnvelope struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends one user message and returns the concatenated text blocks.
func (c *Client) Generate(ctx context.Context, prompt string, maxTokens int) (domain.Completion, error) {
	body, err := json.Marshal(request{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return domain.Completion{}, err
	}

	var resp response
	if err := c.post(ctx, c.base+"/v1/messages", body, &resp); err != nil {
		return domain.Completion{}, err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return domain.Completion{}, ErrEmptyContent
	}
	model := resp.Model
	if model == "" {
		model = c.model
	}
	return domain.Completion{
		Text:         sb.String(),
		Model:        model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}

// post performs a POST with a bounded number of retries on network errors, 429, 529 and 5xx,
// honoring Retry-After when provided.
func (c *Client) post(ctx context.Context, url string, body []byte, out any) error {
	var lastErr error
	for i := 0; i <= c.retries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("x-api-key", c.key)
		req.Header.Set("anthropic-version", apiVersion)
		req.Header.Set("content-type", "application/json")
		req.Header.Set("accept", "application/json")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal(service, endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < c.retries && retry.Sleep(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal(service, endpoint, resp.StatusCode, time.Since(start))

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("anthropic: decode response: %w", err)
			}
			return nil
		}

		apiErr := decodeError(resp)
		wait := retry.After(resp, maxWait)
		resp.Body.Close()
		if !apiErr.retryable() {
			return apiErr
		}
		lastErr = apiErr
		if wait == 0 {
			wait = backoff(i)
		}
		if i < c.retries && retry.Sleep(ctx, min(wait, maxWait)) {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return lastErr
	}
	return lastErr
}

func decodeError(resp *http.Response) *APIError {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	e := &APIError{Status: resp.StatusCode}
	var env errorEnvelope
	if err := json.Unmarshal(b, &env); err == nil && env.Error.Type != "" {
		e.Type = env.Error.Type
		e.Message = env.Error.Message
		return e
	}
	// not the documented envelope (proxies, gateways)
	e.Message = strings.TrimSpace(string(b))
	return e
}

func backoff(i int) time.Duration {
	return retry.Backoff(i, 500*time.Millisecond, true)
}
