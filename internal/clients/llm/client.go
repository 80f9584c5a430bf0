// Package llm implements interfaces.LLMExtractor against the bespoke
// {model,max_tokens,messages} -> {content:[{text}]} HTTP contract in
// Grounded on a functional-
// options/rate-limited client shape; not google.golang.org/genai (the
// teacher's Gemini SDK), whose request/response shapes don't match this
// wire contract (see DESIGN.md's dropped-dependency entry).
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/chronocoders/indexnode/internal/common"
	"github.com/chronocoders/indexnode/internal/interfaces"
)

const (
	DefaultTimeout   = 60 * time.Second
	DefaultRateLimit = 5
)

// Client implements interfaces.LLMExtractor.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client.
type ClientOption func(*Client)

func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

func WithMaxTokens(maxTokens int) ClientOption {
	return func(c *Client) { c.maxTokens = maxTokens }
}

// NewClient creates an LLM extractor client against baseURL using model.
func NewClient(baseURL, apiKey, model string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		model:     model,
		maxTokens: 1024,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type contentBlock struct {
	Text string `json:"text"`
}

type completionResponse struct {
	Content []contentBlock `json:"content"`
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("llm: rate limit wait: %w", err)
	}

	reqBody := completionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Debug().Str("model", c.model).Int("prompt_bytes", len(prompt)).Msg("LLM extractor request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", common.WrapError(common.KindTransientExternal, "llm", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		body, _ := io.ReadAll(resp.Body)
		return "", common.NewError(common.KindTransientExternal, "llm", fmt.Sprintf("status %d: %s", resp.StatusCode, body))
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return "", common.NewError(common.KindPermanentExternal, "llm", fmt.Sprintf("status %d: %s", resp.StatusCode, body))
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", common.WrapError(common.KindPermanentExternal, "llm", "decode response failed", err)
	}
	if len(out.Content) == 0 {
		return "", common.NewError(common.KindPermanentExternal, "llm", "empty content in response")
	}
	return out.Content[0].Text, nil
}

// Extract performs schema-guided structured extraction over eventData; the
// response text must parse as JSON against the requested schema.
func (c *Client) Extract(ctx context.Context, eventData []byte, schema []byte) ([]byte, error) {
	prompt := fmt.Sprintf(
		"Extract structured data from the following event, returning only JSON that conforms to this schema.\n\nSchema:\n%s\n\nEvent data:\n%s",
		schema, eventData,
	)
	text, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if !json.Valid([]byte(text)) {
		return nil, common.NewError(common.KindPermanentExternal, "llm", "extraction response was not valid JSON")
	}
	return []byte(text), nil
}

// Summarize produces a word-bounded summary of content.
func (c *Client) Summarize(ctx context.Context, content string, maxWords int) (string, error) {
	prompt := fmt.Sprintf("Summarize the following in no more than %d words:\n\n%s", maxWords, content)
	return c.complete(ctx, prompt)
}

// Classify assigns content to exactly one of categories.
func (c *Client) Classify(ctx context.Context, content string, categories []string) (string, error) {
	prompt := fmt.Sprintf(
		"Classify the following into exactly one of these categories: %s. Respond with only the category name.\n\n%s",
		strings.Join(categories, ", "), content,
	)
	label, err := c.complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(label), nil
}

var _ interfaces.LLMExtractor = (*Client)(nil)
