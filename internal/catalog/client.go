package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"
)

// Client fetches rendered article markup from a MediaWiki-style
// document source and parses it into catalog sections.
type Client struct {
	baseURL    string
	sources    Sources
	httpClient *http.Client
	limiter    ratelimit.RateLimiter
}

// NewClient creates a document source client. ratePerSec bounds how
// aggressively the remote service is polled; zero disables the limit.
func NewClient(baseURL string, sources Sources, ratePerSec int) *Client {
	c := &Client{
		baseURL:    baseURL,
		sources:    sources,
		httpClient: newDocumentHTTPClient(),
	}

	if ratePerSec > 0 {
		c.limiter = ratelimit.New(&ratelimit.Config{
			Rate:     ratePerSec,
			Burst:    ratePerSec * 3,
			Interval: time.Second,
		})
	}

	return c
}

// parseResponse mirrors the document API's JSON envelope. The rendered
// markup lives under parse.text["*"].
type parseResponse struct {
	Parse struct {
		Title string            `json:"title"`
		Text  map[string]string `json:"text"`
	} `json:"parse"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

// FetchSections resolves the subcategory to a document, fetches its
// rendered markup, and parses it. Network failures, non-success
// statuses, and service-reported errors are returned as errors; markup
// that parses to nothing yields zero sections and no error.
func (c *Client) FetchSections(ctx context.Context, subcategory string) ([]Section, error) {
	page := c.sources.Page(subcategory)

	if c.limiter != nil && !c.limiter.Allow(ctx, "documents") {
		return nil, fmt.Errorf("document fetch rate limit exceeded")
	}

	endpoint := fmt.Sprintf("%s/w/api.php?action=parse&page=%s&format=json&prop=text",
		c.baseURL, url.QueryEscape(page))

	slog.Debug("fetching catalog document", "subcategory", subcategory, "page", page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build document request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch document: HTTP %d", resp.StatusCode)
	}

	var body parseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode document response: %w", err)
	}

	if body.Error != nil {
		return nil, fmt.Errorf("document service: %s", body.Error.Info)
	}

	html := body.Parse.Text["*"]
	sections := Parse(html)

	slog.Debug("parsed catalog document",
		"page", page,
		"html_bytes", len(html),
		"sections", len(sections),
	)

	return sections, nil
}

// newDocumentHTTPClient builds an HTTP client with conservative
// timeouts for the read-only document source.
func newDocumentHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   5,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}
