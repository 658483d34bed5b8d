package subtitles

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fabrica/internal/common"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 60 * time.Second

	// DefaultRateLimit is the minimum interval between requests.
	DefaultRateLimit = 1 * time.Second
)

// Client is a subtitle-extraction API client.
type Client struct {
	baseURL    string
	apiKey     string
	format     string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new subtitle extraction client.
func NewClient(config *common.SubtitlesConfig, opts ...ClientOption) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("subtitles provider base URL is required")
	}

	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	interval := config.RateLimit
	if interval <= 0 {
		interval = DefaultRateLimit
	}

	c := &Client{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		format:  config.Format,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

type extractRequest struct {
	AudioURL string `json:"audio_url"`
	Format   string `json:"format,omitempty"`
}

type extractResponse struct {
	SubtitlesURL string `json:"subtitles_url"`
}

// ExtractSubtitles transcribes the audio track and returns the URL of the
// generated subtitle file.
func (c *Client) ExtractSubtitles(ctx context.Context, audioURL string) (string, error) {
	if audioURL == "" {
		return "", fmt.Errorf("audio URL is empty")
	}

	var result extractResponse
	if err := c.post(ctx, "/v1/transcribe", extractRequest{AudioURL: audioURL, Format: c.format}, &result); err != nil {
		return "", err
	}

	if result.SubtitlesURL == "" {
		return "", fmt.Errorf("subtitles provider returned no subtitles URL")
	}

	return result.SubtitlesURL, nil
}

// post performs a JSON POST request to the API.
func (c *Client) post(ctx context.Context, path string, payload interface{}, result interface{}) error {
	// Wait fails on context cancellation or deadline, not on rate limits
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("request not sent: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("url", c.baseURL+path).
			Msg("Subtitles API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := time.Second
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			retryAfter = time.Duration(secs) * time.Second
		}
		return &RateLimitError{RetryAfter: retryAfter}
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// APIError represents an error from the subtitles API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("subtitles API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// RateLimitError represents a rate limit error.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("subtitles rate limit exceeded, retry after %v", e.RetryAfter)
}
