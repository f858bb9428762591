package transcript

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Provider names an agent backend whose output can be normalized.
type Provider string

const (
	ProviderClaude Provider = "claude"
	ProviderCodex  Provider = "codex"
	ProviderOpenAI Provider = "openai"
)

// Providers lists the supported providers.
var Providers = []Provider{ProviderClaude, ProviderCodex, ProviderOpenAI}

// ParseProvider validates a provider name, ignoring case.
func ParseProvider(name string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q (want one of claude, codex, openai)", name)
}

// NewNormalizer creates a fresh normalizer for one response stream.
func NewNormalizer(p Provider) (Normalizer, error) {
	switch p {
	case ProviderClaude:
		return NewClaudeNormalizer(), nil
	case ProviderCodex:
		return NewCodexNormalizer(), nil
	case ProviderOpenAI:
		return NewOpenAINormalizer(), nil
	}
	return nil, fmt.Errorf("unknown provider %q", p)
}

// DetectProvider guesses the provider from a log file path.
func DetectProvider(path string) Provider {
	if strings.Contains(filepath.ToSlash(path), "/.codex/") {
		return ProviderCodex
	}
	base := strings.ToLower(filepath.Base(path))
	switch {
	case strings.Contains(base, "codex"):
		return ProviderCodex
	case strings.Contains(base, "openai"):
		return ProviderOpenAI
	}
	return ProviderClaude
}
