package script

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fabrica/internal/common"
	"github.com/ternarybob/fabrica/internal/interfaces"
	"google.golang.org/genai"
)

// GeminiProvider implements the ScriptProvider interface using the Gemini API
type GeminiProvider struct {
	config *common.ScriptConfig
	logger arbor.ILogger
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a new Gemini script provider
func NewGeminiProvider(config *common.ScriptConfig, logger arbor.ILogger) (*GeminiProvider, error) {
	if config.GeminiAPIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set FABRICA_GEMINI_API_KEY or script.gemini_api_key in config)")
	}

	model := config.GeminiModel
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	logger.Info().
		Str("model", model).
		Msg("Gemini script provider initialized")

	return &GeminiProvider{
		config: config,
		logger: logger,
		client: client,
		model:  model,
	}, nil
}

// GenerateScript synthesizes narration text for the request
func (p *GeminiProvider) GenerateScript(ctx context.Context, req interfaces.ScriptRequest) (string, error) {
	contents := []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{genai.NewPartFromText(buildPrompt(req))},
		},
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(p.config.Temperature),
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	}

	// Make API call with retry
	var resp *genai.GenerateContentResponse
	var apiErr error
	retryConfig := NewDefaultRetryConfig()

	for attempt := 0; attempt <= retryConfig.MaxRetries; attempt++ {
		resp, apiErr = p.client.Models.GenerateContent(ctx, p.model, contents, genConfig)
		if apiErr == nil {
			break
		}

		if attempt == retryConfig.MaxRetries {
			break
		}

		var backoff time.Duration
		if IsRateLimitError(apiErr) {
			apiDelay := ExtractRetryDelay(apiErr)
			backoff = retryConfig.CalculateBackoff(attempt, apiDelay)
		} else {
			backoff = time.Duration(attempt+1) * 2 * time.Second
		}

		p.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Retrying Gemini API call")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}

	if apiErr != nil {
		return "", fmt.Errorf("Gemini API call failed after %d retries: %w", retryConfig.MaxRetries, apiErr)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("empty response from Gemini API")
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty text in Gemini response")
	}

	return text, nil
}
