package llm

import (
	"fmt"
	"os"
)

// Provider names accepted by Config.Provider.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

// Config holds all LLM provider configuration.
type Config struct {
	// Provider selects which vendor to use.
	Provider string `yaml:"provider"`

	Anthropic  AnthropicConfig  `yaml:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	OpenRouter OpenRouterConfig `yaml:"openrouter"`
}

type AnthropicConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type GeminiConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type OpenRouterConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// DefaultConfig returns a Config with the default model per vendor.
func DefaultConfig() Config {
	return Config{
		Provider:   ProviderAnthropic,
		Anthropic:  AnthropicConfig{Model: "claude-sonnet"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenRouterConfig{Model: "google/gemini-2.5-flash"},
	}
}

// ApplyEnv overrides cfg with COURSECRAFT_* environment variables.
func (c *Config) ApplyEnv() {
	set := func(dst *string, name string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	set(&c.Provider, "COURSECRAFT_LLM_PROVIDER")
	set(&c.Anthropic.APIKey, "COURSECRAFT_ANTHROPIC_API_KEY")
	set(&c.Anthropic.Model, "COURSECRAFT_ANTHROPIC_MODEL")
	set(&c.OpenAI.APIKey, "COURSECRAFT_OPENAI_API_KEY")
	set(&c.OpenAI.Model, "COURSECRAFT_OPENAI_MODEL")
	set(&c.OpenAI.BaseURL, "COURSECRAFT_OPENAI_BASE_URL")
	set(&c.Gemini.APIKey, "COURSECRAFT_GEMINI_API_KEY")
	set(&c.Gemini.Model, "COURSECRAFT_GEMINI_MODEL")
	set(&c.OpenRouter.APIKey, "COURSECRAFT_OPENROUTER_API_KEY")
	set(&c.OpenRouter.Model, "COURSECRAFT_OPENROUTER_MODEL")
}

// Discover fills in the first vendor key found in the standard environment
// variables (Anthropic, OpenAI, Gemini, OpenRouter) when the configured
// provider has no key yet. Returns false if nothing was found.
func (c *Config) Discover() bool {
	if c.hasKey() {
		return true
	}
	candidates := []struct {
		env      string
		provider string
		key      *string
	}{
		{"ANTHROPIC_API_KEY", ProviderAnthropic, &c.Anthropic.APIKey},
		{"OPENAI_API_KEY", ProviderOpenAI, &c.OpenAI.APIKey},
		{"GEMINI_API_KEY", ProviderGemini, &c.Gemini.APIKey},
		{"OPENROUTER_API_KEY", ProviderOpenRouter, &c.OpenRouter.APIKey},
	}
	// Prefer the configured provider's standard variable.
	for _, cand := range candidates {
		if cand.provider == c.Provider {
			if k := os.Getenv(cand.env); k != "" {
				*cand.key = k
				return true
			}
		}
	}
	for _, cand := range candidates {
		if k := os.Getenv(cand.env); k != "" {
			c.Provider = cand.provider
			*cand.key = k
			return true
		}
	}
	return false
}

func (c Config) hasKey() bool {
	switch c.Provider {
	case ProviderAnthropic:
		return c.Anthropic.APIKey != ""
	case ProviderOpenAI:
		return c.OpenAI.APIKey != ""
	case ProviderGemini:
		return c.Gemini.APIKey != ""
	case ProviderOpenRouter:
		return c.OpenRouter.APIKey != ""
	case ProviderMock:
		return true
	}
	return false
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderGemini, ProviderOpenRouter:
		if !c.hasKey() {
			return fmt.Errorf("an API key is required for the %s provider (set ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY or OPENROUTER_API_KEY)", c.Provider)
		}
	case ProviderMock:
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}

// Model returns the configured model name of the selected provider.
func (c Config) Model() string {
	switch c.Provider {
	case ProviderAnthropic:
		return resolveModel(c.Anthropic.Model, anthropicModels)
	case ProviderOpenAI:
		return resolveModel(c.OpenAI.Model, openaiModels)
	case ProviderGemini:
		return resolveModel(c.Gemini.Model, geminiModels)
	case ProviderOpenRouter:
		return c.OpenRouter.Model
	}
	return c.Provider
}
