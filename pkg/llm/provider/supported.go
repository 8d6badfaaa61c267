package provider

import (
	"os"
	"slices"

	"github.com/papercomputeco/docsearch/pkg/credentials"
)

// Supported provider type constants
const (
	Anthropic = "anthropic"
	OpenAI    = "openai"
	Ollama    = "ollama"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{Anthropic, OpenAI, Ollama}
}

// IsSupported reports whether name is a supported provider.
func IsSupported(name string) bool {
	return slices.Contains(SupportedProviders(), name)
}

func envKey(providerName string) string {
	if env := credentials.EnvVarForProvider(providerName); env != "" {
		return os.Getenv(env)
	}
	return ""
}
