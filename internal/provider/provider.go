// Package provider implements the analysis adapters that delegate semantic
// code analysis to an external text-completion service. The set of variants
// is closed: an OpenAI-compatible client (also covering DeepSeek and other
// compatible gateways), an Anthropic messages client, and a generic HTTP
// client posting a plain JSON envelope. The variant is selected once per
// scanner construction from a named configuration profile.
package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/codescan-sec/codescan/pkg/shared/config"
)

// Adapter sends a prompt to an external analysis capability and returns the
// raw response text. Failures are always a *Error whose Kind distinguishes
// auth, timeout and connection problems.
type Adapter interface {
	Analyze(ctx context.Context, prompt string) (string, error)
	Name() string
}

const defaultMaxTokens = 8192

// NewAdapter resolves a named model profile from the configuration and
// constructs the matching adapter variant. Unknown providers are a
// construction-time error, not a scan-time one.
func NewAdapter(cfg *config.Config, client *resty.Client, logger hclog.Logger, profileName string) (Adapter, error) {
	profile, err := cfg.GetModelProfile(profileName)
	if err != nil {
		return nil, err
	}

	maxTokens := profile.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	switch strings.ToLower(profile.Provider) {
	case "openai":
		return newOpenAICompatible("openai", profile, maxTokens, client, logger), nil
	case "deepseek":
		if profile.BaseURL == "" {
			profile.BaseURL = "https://api.deepseek.com"
		}
		return newOpenAICompatible("deepseek", profile, maxTokens, client, logger), nil
	case "anthropic":
		return newAnthropicStyle(profile, maxTokens, client, logger), nil
	case "custom":
		return newGenericHTTP(profile, client, logger), nil
	default:
		return nil, fmt.Errorf("unsupported model provider: %q", profile.Provider)
	}
}
