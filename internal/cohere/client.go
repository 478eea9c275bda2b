// Package cohere is a small HTTP client for the hosted Cohere embed and chat
// endpoints.
package cohere

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

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL    = "https://api.cohere.com"
	DefaultEmbedModel = "embed-english-v3.0"
	DefaultChatModel  = "command-a-03-2025"

	InputTypeDocument = "search_document"
	InputTypeQuery    = "search_query"
)

var ErrMissingAPIKey = errors.New("cohere: api key is not configured")

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cohere: status %d: %s", e.StatusCode, e.Message)
}

type Config struct {
	APIKey     string
	BaseURL    string
	EmbedModel string
	ChatModel  string
	Timeout    time.Duration

	// Breaker trips after this many consecutive failures and stays open for
	// BreakerCooldown.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

type Client struct {
	cfg     Config
	http    *http.Client
	embedCB *gobreaker.CircuitBreaker[[][]float32]
	chatCB  *gobreaker.CircuitBreaker[string]
	logger  *zap.SugaredLogger
}

func New(cfg Config, logger *zap.SugaredLogger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = DefaultEmbedModel
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
	c.embedCB = gobreaker.NewCircuitBreaker[[][]float32](c.breakerSettings("cohere-embed"))
	c.chatCB = gobreaker.NewCircuitBreaker[string](c.breakerSettings("cohere-chat"))
	return c
}

func (c *Client) breakerSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     c.cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.cfg.BreakerFailures
		},
		// client errors (bad input) should not open the breaker
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusTooManyRequests
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warnw("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
}

type embedRequest struct {
	Texts     []string `json:"texts"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed returns one vector per input text, in order.
func (c *Client) Embed(ctx context.Context, texts []string, inputType string) ([][]float32, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if inputType == "" {
		inputType = InputTypeDocument
	}

	return c.embedCB.Execute(func() ([][]float32, error) {
		var out embedResponse
		err := c.post(ctx, "/v1/embed", embedRequest{
			Texts:     texts,
			Model:     c.cfg.EmbedModel,
			InputType: inputType,
		}, &out)
		if err != nil {
			return nil, err
		}
		if len(out.Embeddings) != len(texts) {
			return nil, fmt.Errorf("cohere: expected %d embeddings, got %d", len(texts), len(out.Embeddings))
		}
		return out.Embeddings, nil
	})
}

type chatRequest struct {
	Model       string  `json:"model"`
	Message     string  `json:"message"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type chatResponse struct {
	Text string `json:"text"`
}

// Chat sends a single-turn prompt and returns the generated text.
func (c *Client) Chat(ctx context.Context, prompt string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrMissingAPIKey
	}

	return c.chatCB.Execute(func() (string, error) {
		var out chatResponse
		err := c.post(ctx, "/v1/chat", chatRequest{
			Model:       c.cfg.ChatModel,
			Message:     prompt,
			MaxTokens:   100,
			Temperature: 0.3,
		}, &out)
		if err != nil {
			return "", err
		}
		text := strings.TrimSpace(out.Text)
		if text == "" {
			return "", errors.New("cohere: empty chat response")
		}
		return text, nil
	})
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("cohere: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("cohere: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cohere: %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("cohere: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Message string `json:"message"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil && e.Message != "" {
			msg = e.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("cohere: decode response: %w", err)
	}
	return nil
}
