package llm

import (
	"context"
	"time"
)

// Client turns a prompt into raw model text. Callers parse whatever structure they
// asked for out of the returned prose.
type Client interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Config selects and configures a provider. Empty fields fall back to defaults.
type Config struct {
	Provider     string        `yaml:"provider" mapstructure:"provider"`
	Model        string        `yaml:"model" mapstructure:"model"`
	OpenAIKey    string        `yaml:"openai_api_key" mapstructure:"openai_api_key"`
	OpenAIBase   string        `yaml:"openai_api_base" mapstructure:"openai_api_base"`
	AnthropicKey string        `yaml:"anthropic_api_key" mapstructure:"anthropic_api_key"`
	AnthropicURL string        `yaml:"anthropic_api_url" mapstructure:"anthropic_api_url"`
	GoogleKey    string        `yaml:"google_api_key" mapstructure:"google_api_key"`
	GeminiURL    string        `yaml:"gemini_api_url" mapstructure:"gemini_api_url"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Temperature  float32       `yaml:"temperature" mapstructure:"temperature"`
	Debug        bool          `yaml:"debug" mapstructure:"debug"`
}

const (
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultAnthropicModel = "claude-3-5-sonnet-latest"
	defaultGeminiModel    = "gemini-2.0-flash"
	defaultTimeout        = 45 * time.Second
)

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultTimeout
}

func (c Config) model(def string) string {
	if c.Model != "" {
		return c.Model
	}
	return def
}
