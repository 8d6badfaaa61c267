// Package provider resolves a chat model provider from configuration and
// returns an llm.CallFunc for it.
package provider

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/docsearch/pkg/credentials"
	"github.com/papercomputeco/docsearch/pkg/llm"
	"github.com/papercomputeco/docsearch/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/docsearch/pkg/llm/provider/ollama"
	"github.com/papercomputeco/docsearch/pkg/llm/provider/openai"
)

// Config holds configuration for creating a caller.
type Config struct {
	Provider string               // "openai", "anthropic", or "ollama"
	Model    string               // e.g. "gpt-4o-mini", "claude-haiku-4-5-20251001"
	APIKey   string               // explicit API key (highest priority)
	BaseURL  string               // override base URL
	CredMgr  *credentials.Manager // stored credentials
}

// NewCaller creates an llm.CallFunc for the configured provider.
// Resolution order for API key:
//  1. Explicit APIKey in config
//  2. credentials.Manager (credentials.toml, then environment)
//  3. Fall back to Ollama at localhost:11434
func NewCaller(cfg Config, logger *slog.Logger) (llm.CallFunc, error) {
	providerName := strings.ToLower(cfg.Provider)
	if !IsSupported(providerName) {
		return nil, fmt.Errorf("unsupported provider: %q (supported: %v)", cfg.Provider, SupportedProviders())
	}

	apiKey := cfg.APIKey
	if apiKey == "" && providerName != Ollama {
		apiKey = resolveAPIKey(cfg.CredMgr, providerName)
	}

	model := cfg.Model
	baseURL := cfg.BaseURL
	if apiKey == "" && providerName != Ollama {
		logger.Warn("no API key found, falling back to ollama", "provider", providerName)
		providerName = Ollama
		model = ""
		baseURL = ""
	}

	switch providerName {
	case OpenAI:
		return openai.New(openai.Config{BaseURL: baseURL, Model: model, APIKey: apiKey}).Call, nil
	case Anthropic:
		return anthropic.New(anthropic.Config{BaseURL: baseURL, Model: model, APIKey: apiKey}).Call, nil
	default:
		return ollama.New(ollama.Config{BaseURL: baseURL, Model: model}).Call, nil
	}
}

// NewGenerator wraps NewCaller in an llm.PromptGenerator.
func NewGenerator(cfg Config, maxContentChars int, logger *slog.Logger) (llm.Generator, error) {
	call, err := NewCaller(cfg, logger)
	if err != nil {
		return nil, err
	}
	return llm.NewPromptGenerator(call, maxContentChars), nil
}

func resolveAPIKey(mgr *credentials.Manager, providerName string) string {
	if mgr != nil {
		if key, err := mgr.ResolveKey(providerName); err == nil && key != "" {
			return key
		}
		return ""
	}
	return envKey(providerName)
}
