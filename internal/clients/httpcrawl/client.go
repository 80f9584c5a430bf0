// Package httpcrawl implements interfaces.HTTPCrawler: fetch a URL and
// extract its http(s) outbound links. HTTP plumbing
// is grounded on internal/clients/eodhd/client.go's functional-options
// client shape; link extraction uses golang.org/x/net/html, a new domain
// dependency for this package, used here for HTML parsing.
package httpcrawl

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/chronocoders/indexnode/internal/common"
	"github.com/chronocoders/indexnode/internal/interfaces"
	"github.com/chronocoders/indexnode/internal/models"
)

const (
	DefaultTimeout      = 15 * time.Second
	DefaultRateLimit    = 5
	DefaultMaxRedirects = 5
	DefaultUserAgent    = "indexnode-crawler/1.0"
)

// Client implements interfaces.HTTPCrawler.
type Client struct {
	userAgent  string
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

func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) { c.userAgent = userAgent }
}

func WithMaxRedirects(maxRedirects int) ClientOption {
	return func(c *Client) {
		c.httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("httpcrawl: stopped after %d redirects", maxRedirects)
			}
			return nil
		}
	}
}

// NewClient creates an HTTP crawler client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		userAgent: DefaultUserAgent,
		httpClient: &http.Client{
			Timeout:       DefaultTimeout,
			CheckRedirect: redirectLimiter(DefaultMaxRedirects),
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func redirectLimiter(max int) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return fmt.Errorf("httpcrawl: stopped after %d redirects", max)
		}
		return nil
	}
}

// Crawl fetches rawURL once and extracts every http(s) outbound link found
// in the response body, on any host, up to maxPages links (maxPages <= 0
// means no cap). It returns both the CrawlResult row and the discovered
// links; it does not fetch the links it returns.
func (c *Client) Crawl(ctx context.Context, rawURL string, maxPages int) (*models.CrawlResult, []string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, common.WrapError(common.KindInputInvalid, "httpcrawl", "invalid url", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("httpcrawl: rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, common.WrapError(common.KindInputInvalid, "httpcrawl", "build request failed", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug().Str("url", rawURL).Msg("crawling page")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, common.WrapError(common.KindTransientExternal, "httpcrawl", "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, nil, common.WrapError(common.KindTransientExternal, "httpcrawl", "read body failed", err)
	}

	sum := sha256.Sum256(body)
	links := extractSameSchemeLinks(body, parsed)
	if maxPages > 0 && len(links) > maxPages {
		links = links[:maxPages]
	}

	result := &models.CrawlResult{
		URL:         rawURL,
		StatusCode:  resp.StatusCode,
		ContentHash: hex.EncodeToString(sum[:]),
		Links:       links,
	}
	return result, links, nil
}

func extractSameSchemeLinks(body []byte, base *url.URL) []string {
	var links []string
	seen := make(map[string]bool)

	tokenizer := html.NewTokenizer(strings.NewReader(string(body)))
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			return links
		}
		if tt != html.StartTagToken {
			continue
		}
		token := tokenizer.Token()
		if token.Data != "a" {
			continue
		}
		for _, attr := range token.Attr {
			if attr.Key != "href" {
				continue
			}
			resolved, err := base.Parse(attr.Val)
			if err != nil {
				continue
			}
			if resolved.Scheme != "http" && resolved.Scheme != "https" {
				continue
			}
			normalized := resolved.String()
			if !seen[normalized] {
				seen[normalized] = true
				links = append(links, normalized)
			}
		}
	}
}

var _ interfaces.HTTPCrawler = (*Client)(nil)
