package script

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fabrica/internal/common"
	"github.com/ternarybob/fabrica/internal/interfaces"
)

// ClaudeProvider implements the ScriptProvider interface using the Claude API
type ClaudeProvider struct {
	config *common.ScriptConfig
	logger arbor.ILogger
	client anthropic.Client
	model  string
}

// NewClaudeProvider creates a new Claude script provider
func NewClaudeProvider(config *common.ScriptConfig, logger arbor.ILogger) (*ClaudeProvider, error) {
	if config.ClaudeAPIKey == "" {
		return nil, fmt.Errorf("Claude API key is required (set ANTHROPIC_API_KEY or script.claude_api_key in config)")
	}

	model := config.ClaudeModel
	if model == "" {
		model = "claude-haiku-3-5-20241022"
	}

	client := anthropic.NewClient(
		option.WithAPIKey(config.ClaudeAPIKey),
	)

	logger.Info().
		Str("model", model).
		Msg("Claude script provider initialized")

	return &ClaudeProvider{
		config: config,
		logger: logger,
		client: client,
		model:  model,
	}, nil
}

// GenerateScript synthesizes narration text for the request
func (p *ClaudeProvider) GenerateScript(ctx context.Context, req interfaces.ScriptRequest) (string, error) {
	maxTokens := p.config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(req))),
		},
		System: []anthropic.TextBlockParam{
			{Text: systemInstruction},
		},
	}

	if p.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(p.config.Temperature))
	}

	// Make API call with retry
	var resp *anthropic.Message
	var apiErr error
	retryConfig := NewDefaultRetryConfig()

	for attempt := 0; attempt <= retryConfig.MaxRetries; attempt++ {
		resp, apiErr = p.client.Messages.New(ctx, params)
		if apiErr == nil {
			break
		}

		if attempt == retryConfig.MaxRetries {
			break
		}

		backoff := time.Duration(attempt+1) * 2 * time.Second
		if IsRateLimitError(apiErr) {
			backoff = retryConfig.CalculateBackoff(attempt, 0)
		}

		p.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Retrying Claude API call")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}

	if apiErr != nil {
		return "", fmt.Errorf("Claude API call failed after %d retries: %w", retryConfig.MaxRetries, apiErr)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if text.Len() == 0 {
		return "", fmt.Errorf("empty response from Claude API")
	}

	return text.String(), nil
}
