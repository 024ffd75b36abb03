package llm

import (
	"fmt"
	"strings"
)

// Provider names accepted by NewProvider.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// NewProvider builds the named provider.
func NewProvider(name, apiKey string, opts ...Option) (LLMProvider, error) {
	switch strings.ToLower(name) {
	case "", ProviderAnthropic:
		return NewAnthropicProvider(apiKey, opts...), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(apiKey, opts...), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", name)
	}
}
