package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"apiprobe/internal/suite"
	"apiprobe/pkg/logging"
)

const (
	// DefaultTimeout is the per-attempt request timeout, not cumulative
	// across retries.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent identifies apiprobe requests.
	DefaultUserAgent = "apiprobe"

	// maxAttempts is the total number of tries per request, including the
	// first one.
	maxAttempts = 3

	defaultRetryWaitMin = 500 * time.Millisecond
	defaultRetryWaitMax = 8 * time.Second
)

// Config holds the client configuration. Zero values fall back to defaults.
type Config struct {
	// BaseURL is prepended to relative request URLs.
	BaseURL string
	// BearerToken, when set, is attached as an Authorization header.
	BearerToken string
	// Timeout bounds each individual attempt.
	Timeout time.Duration
	// UserAgent overrides the default User-Agent header.
	UserAgent string
	// RetryWaitMin/RetryWaitMax bound the exponential backoff between
	// attempts. Exposed for tests; the defaults keep total backoff well
	// under ten seconds.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// ConfigFromEnv returns a Config seeded from the BASE_URL and BEARER_TOKEN
// environment variables.
func ConfigFromEnv() Config {
	return Config{
		BaseURL:     os.Getenv("BASE_URL"),
		BearerToken: os.Getenv("BEARER_TOKEN"),
	}
}

// Response is the outcome of one executed request. An HTTP error status is a
// valid Response, not an error: "server said 500" is a legitimate test
// outcome.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// Latency spans all attempts, so transparent retries surface only as
	// added latency.
	Latency time.Duration
}

// Client executes rendered requests with retry and bearer-token injection.
// Create one per step; it is cheap and carries no cross-step state.
type Client struct {
	config Config
	retry  *retryablehttp.Client
}

// New creates a client for the given configuration.
func New(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.RetryWaitMin == 0 {
		config.RetryWaitMin = defaultRetryWaitMin
	}
	if config.RetryWaitMax == 0 {
		config.RetryWaitMax = defaultRetryWaitMax
	}

	retry := retryablehttp.NewClient()
	retry.RetryMax = maxAttempts - 1
	retry.RetryWaitMin = config.RetryWaitMin
	retry.RetryWaitMax = config.RetryWaitMax
	retry.HTTPClient.Timeout = config.Timeout
	retry.Logger = nil
	retry.CheckRetry = retryOnTransportError

	return &Client{
		config: config,
		retry:  retry,
	}
}

// retryOnTransportError retries only when the attempt failed at the
// connection level. Any received response, including 4xx/5xx, is handed back
// to the assertion layer for validation.
func retryOnTransportError(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		logging.Debug("HTTPClient", "Transport error, will retry: %v", err)
		return true, nil
	}
	return false, nil
}

// Do executes one rendered request and returns the fully-read response.
func (c *Client) Do(ctx context.Context, req suite.RenderedRequest) (*Response, error) {
	url, err := c.resolveURL(req.URL)
	if err != nil {
		return nil, err
	}

	var rawBody interface{}
	if req.JSON != nil {
		payload, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		rawBody = payload
	}

	request, err := retryablehttp.NewRequestWithContext(ctx, req.Method, url, rawBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range req.Headers {
		request.Header.Set(key, value)
	}
	request.Header.Set("User-Agent", c.config.UserAgent)
	if req.JSON != nil && request.Header.Get("Content-Type") == "" {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.config.BearerToken != "" && request.Header.Get("Authorization") == "" {
		request.Header.Set("Authorization", "Bearer "+c.config.BearerToken)
	}

	start := time.Now()
	resp, err := c.retry.Do(request)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Latency:    latency,
	}, nil
}

// resolveURL uses absolute URLs verbatim and joins relative paths to the
// configured base URL.
func (c *Client) resolveURL(pathOrURL string) (string, error) {
	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		return pathOrURL, nil
	}
	if c.config.BaseURL == "" {
		return "", fmt.Errorf("relative url %q requires a base URL (flag --base-url or BASE_URL)", pathOrURL)
	}
	return strings.TrimSuffix(c.config.BaseURL, "/") + "/" + strings.TrimPrefix(pathOrURL, "/"), nil
}
