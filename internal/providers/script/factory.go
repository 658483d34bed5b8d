package script

import (
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fabrica/internal/common"
	"github.com/ternarybob/fabrica/internal/interfaces"
)

// NewProvider creates a script provider based on the configured default.
// When the default is empty the provider is detected from whichever API
// key is present, preferring Gemini.
func NewProvider(config *common.ScriptConfig, logger arbor.ILogger) (interfaces.ScriptProvider, error) {
	name := strings.ToLower(strings.TrimSpace(config.DefaultProvider))
	if name == "" {
		name = detectProvider(config)
	}

	switch name {
	case "gemini":
		return NewGeminiProvider(config, logger)
	case "claude", "anthropic":
		return NewClaudeProvider(config, logger)
	default:
		return nil, fmt.Errorf("unknown script provider: %s (supported: gemini, claude)", name)
	}
}

func detectProvider(config *common.ScriptConfig) string {
	if config.GeminiAPIKey != "" {
		return "gemini"
	}
	if config.ClaudeAPIKey != "" {
		return "claude"
	}
	return "gemini"
}
