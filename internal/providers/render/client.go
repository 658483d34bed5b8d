package render

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
	"github.com/ternarybob/fabrica/internal/interfaces"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default HTTP timeout. Rendering is the
	// slowest pipeline stage so the timeout is generous.
	DefaultTimeout = 120 * time.Second

	// DefaultRateLimit is the minimum interval between requests.
	DefaultRateLimit = 1 * time.Second
)

// Client is a video-rendering API client.
type Client struct {
	baseURL    string
	apiKey     string
	resolution string
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

// NewClient creates a new rendering client.
func NewClient(config *common.RenderConfig, opts ...ClientOption) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("render provider base URL is required")
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
		baseURL:    config.BaseURL,
		apiKey:     config.APIKey,
		resolution: config.Resolution,
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

type renderRequest struct {
	AudioURL   string `json:"audio_url"`
	Title      string `json:"title"`
	Resolution string `json:"resolution,omitempty"`
}

type renderResponse struct {
	VideoURL     string `json:"video_url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// RenderVideo composes the audio track into a finished video and returns
// the URLs of the rendered assets.
func (c *Client) RenderVideo(ctx context.Context, audioURL, title string) (*interfaces.RenderResult, error) {
	if audioURL == "" {
		return nil, fmt.Errorf("audio URL is empty")
	}

	var result renderResponse
	if err := c.post(ctx, "/v1/render", renderRequest{AudioURL: audioURL, Title: title, Resolution: c.resolution}, &result); err != nil {
		return nil, err
	}

	if result.VideoURL == "" {
		return nil, fmt.Errorf("render provider returned no video URL")
	}

	return &interfaces.RenderResult{
		VideoURL:     result.VideoURL,
		ThumbnailURL: result.ThumbnailURL,
	}, nil
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
			Msg("Render API request")
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

// APIError represents an error from the render API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("render API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// RateLimitError represents a rate limit error.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("render rate limit exceeded, retry after %v", e.RetryAfter)
}
