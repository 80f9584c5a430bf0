// Package cas implements interfaces.CASClient against an IPFS-style HTTP
// API, grounded on internal/clients/eodhd/client.go's
// functional-options/rate-limited-GET pattern generalized to the add/cat/
// pin/unpin endpoints an IPFS-compatible gateway exposes.
package cas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/chronocoders/indexnode/internal/common"
	"github.com/chronocoders/indexnode/internal/interfaces"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10
)

// Client implements interfaces.CASClient.
type Client struct {
	baseURL    string
	pinataJWT  string
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

// NewClient creates a CAS client against baseURL, with an optional Pinata
// bearer JWT for pin/unpin operations.
func NewClient(baseURL, pinataJWT string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   baseURL,
		pinataJWT: pinataJWT,
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

type addResponse struct {
	Hash string `json:"hash"`
}

// Add stores data and returns its content identifier.
func (c *Client) Add(ctx context.Context, data []byte) (cid string, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("cas: rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/add", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("cas: build add request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", common.WrapError(common.KindTransientExternal, "cas", "add request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", common.NewError(common.KindPermanentExternal, "cas", fmt.Sprintf("add: status %d: %s", resp.StatusCode, body))
	}

	var out addResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", common.WrapError(common.KindPermanentExternal, "cas", "add: decode response failed", err)
	}

	c.logger.Debug().Str("cid", out.Hash).Int("bytes", len(data)).Msg("content added to CAS")
	return out.Hash, nil
}

// Cat retrieves the raw bytes stored under cid.
func (c *Client) Cat(ctx context.Context, cid string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("cas: rate limit wait: %w", err)
	}

	url := fmt.Sprintf("%s/cat?arg=%s", c.baseURL, cid)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("cas: build cat request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, common.WrapError(common.KindTransientExternal, "cas", "cat request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, common.NewError(common.KindNotFound, "cas", fmt.Sprintf("cid %s not found", cid))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, common.NewError(common.KindPermanentExternal, "cas", fmt.Sprintf("cat: status %d: %s", resp.StatusCode, body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, common.WrapError(common.KindTransientExternal, "cas", "cat: read body failed", err)
	}
	return data, nil
}

// Pin pins cid so it is not garbage-collected.
func (c *Client) Pin(ctx context.Context, cid string) error {
	return c.pinOp(ctx, "/pin/add", cid)
}

// Unpin removes a prior pin.
func (c *Client) Unpin(ctx context.Context, cid string) error {
	return c.pinOp(ctx, "/pin/rm", cid)
}

func (c *Client) pinOp(ctx context.Context, path, cid string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("cas: rate limit wait: %w", err)
	}

	url := fmt.Sprintf("%s%s?arg=%s", c.baseURL, path, cid)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("cas: build %s request: %w", path, err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return common.WrapError(common.KindTransientExternal, "cas", path+" request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return common.NewError(common.KindPermanentExternal, "cas", fmt.Sprintf("%s: status %d: %s", path, resp.StatusCode, body))
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.pinataJWT != "" {
		req.Header.Set("Authorization", "Bearer "+c.pinataJWT)
	}
}

var _ interfaces.CASClient = (*Client)(nil)
