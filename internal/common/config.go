package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production"
	Server      ServerConfig   `toml:"server"`
	Storage     StorageConfig  `toml:"storage"`
	Pipeline    PipelineConfig `toml:"pipeline"`
	Logging     LoggingConfig  `toml:"logging"`
	Script      ScriptConfig   `toml:"script"`
	Speech      SpeechConfig   `toml:"speech"`
	Render      RenderConfig   `toml:"render"`
	Subtitles   SubtitlesConfig `toml:"subtitles"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// PipelineConfig controls the drain loop and stage execution
type PipelineConfig struct {
	Enabled       bool   `toml:"enabled"`
	Schedule      string `toml:"schedule"`       // Cron schedule for the drain job
	StageTimeout  string `toml:"stage_timeout"`  // e.g., "5m" - deadline applied to each provider call
	StaleAfter    string `toml:"stale_after"`    // e.g., "15m" - processing jobs without a heartbeat are reclaimed after this
	SweepInterval string `toml:"sweep_interval"` // e.g., "5m" - how often the stale-job sweeper runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05.000")
}

// ScriptConfig configures the script-synthesis providers (Gemini and Claude)
type ScriptConfig struct {
	DefaultProvider string  `toml:"default_provider"` // "gemini" or "claude"
	GeminiAPIKey    string  `toml:"gemini_api_key"`
	GeminiModel     string  `toml:"gemini_model"`
	ClaudeAPIKey    string  `toml:"claude_api_key"`
	ClaudeModel     string  `toml:"claude_model"`
	MaxTokens       int     `toml:"max_tokens"`
	Temperature     float32 `toml:"temperature"`
	Timeout         string  `toml:"timeout"`
}

// SpeechConfig configures the audio-synthesis provider endpoint
type SpeechConfig struct {
	BaseURL        string        `toml:"base_url"`
	APIKey         string        `toml:"api_key"`
	Voice          string        `toml:"voice"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	RateLimit      time.Duration `toml:"rate_limit"` // Minimum interval between requests
}

// RenderConfig configures the video-rendering provider endpoint
type RenderConfig struct {
	BaseURL        string        `toml:"base_url"`
	APIKey         string        `toml:"api_key"`
	Resolution     string        `toml:"resolution"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	RateLimit      time.Duration `toml:"rate_limit"`
}

// SubtitlesConfig configures the subtitle-extraction provider endpoint
type SubtitlesConfig struct {
	BaseURL        string        `toml:"base_url"`
	APIKey         string        `toml:"api_key"`
	Format         string        `toml:"format"` // "srt" or "vtt"
	RequestTimeout time.Duration `toml:"request_timeout"`
	RateLimit      time.Duration `toml:"rate_limit"`
}

// NewDefaultConfig returns a config populated with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8985,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/fabrica",
				ResetOnStartup: false,
			},
		},
		Pipeline: PipelineConfig{
			Enabled:       true,
			Schedule:      "*/1 * * * *", // Drain one job per minute by default
			StageTimeout:  "5m",
			StaleAfter:    "15m",
			SweepInterval: "5m",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05.000",
		},
		Script: ScriptConfig{
			DefaultProvider: "gemini",
			GeminiModel:     "gemini-2.0-flash",
			ClaudeModel:     "claude-haiku-3-5-20241022",
			MaxTokens:       8192,
			Temperature:     0.7,
			Timeout:         "5m",
		},
		Speech: SpeechConfig{
			Voice:          "narrator",
			RequestTimeout: 60 * time.Second,
			RateLimit:      1 * time.Second,
		},
		Render: RenderConfig{
			Resolution:     "1080p",
			RequestTimeout: 120 * time.Second,
			RateLimit:      1 * time.Second,
		},
		Subtitles: SubtitlesConfig{
			Format:         "vtt",
			RequestTimeout: 60 * time.Second,
			RateLimit:      1 * time.Second,
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FABRICA_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("FABRICA_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("FABRICA_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("FABRICA_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Pipeline configuration
	if schedule := os.Getenv("FABRICA_PIPELINE_SCHEDULE"); schedule != "" {
		config.Pipeline.Schedule = schedule
	}
	if stageTimeout := os.Getenv("FABRICA_PIPELINE_STAGE_TIMEOUT"); stageTimeout != "" {
		config.Pipeline.StageTimeout = stageTimeout
	}
	if staleAfter := os.Getenv("FABRICA_PIPELINE_STALE_AFTER"); staleAfter != "" {
		config.Pipeline.StaleAfter = staleAfter
	}

	// Logging configuration
	if level := os.Getenv("FABRICA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("FABRICA_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Provider API keys
	if key := os.Getenv("FABRICA_GEMINI_API_KEY"); key != "" {
		config.Script.GeminiAPIKey = key
	}
	if key := os.Getenv("FABRICA_CLAUDE_API_KEY"); key != "" {
		config.Script.ClaudeAPIKey = key
	} else if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && config.Script.ClaudeAPIKey == "" {
		config.Script.ClaudeAPIKey = key
	}
	if key := os.Getenv("FABRICA_SPEECH_API_KEY"); key != "" {
		config.Speech.APIKey = key
	}
	if url := os.Getenv("FABRICA_SPEECH_BASE_URL"); url != "" {
		config.Speech.BaseURL = url
	}
	if key := os.Getenv("FABRICA_RENDER_API_KEY"); key != "" {
		config.Render.APIKey = key
	}
	if url := os.Getenv("FABRICA_RENDER_BASE_URL"); url != "" {
		config.Render.BaseURL = url
	}
	if key := os.Getenv("FABRICA_SUBTITLES_API_KEY"); key != "" {
		config.Subtitles.APIKey = key
	}
	if url := os.Getenv("FABRICA_SUBTITLES_BASE_URL"); url != "" {
		config.Subtitles.BaseURL = url
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// StageTimeout parses the configured per-stage deadline
func (c *PipelineConfig) StageTimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.StageTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid stage_timeout '%s': %w", c.StageTimeout, err)
	}
	return d, nil
}

// StaleAfterDuration parses the configured stale-job threshold
func (c *PipelineConfig) StaleAfterDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.StaleAfter)
	if err != nil {
		return 0, fmt.Errorf("invalid stale_after '%s': %w", c.StaleAfter, err)
	}
	return d, nil
}

// SweepIntervalDuration parses the configured sweep interval
func (c *PipelineConfig) SweepIntervalDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.SweepInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid sweep_interval '%s': %w", c.SweepInterval, err)
	}
	return d, nil
}
