package provider

import (
	"context"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/codescan-sec/codescan/pkg/shared/config"
)

const anthropicVersion = "2023-06-01"

// anthropicStyle talks to the Anthropic messages API.
type anthropicStyle struct {
	apiKey    string
	model     string
	baseURL   string
	maxTokens int
	client    *resty.Client
	logger    hclog.Logger
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func newAnthropicStyle(profile config.ModelProfile, maxTokens int, client *resty.Client, logger hclog.Logger) *anthropicStyle {
	baseURL := profile.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	return &anthropicStyle{
		apiKey:    profile.APIKey,
		model:     profile.Model,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		maxTokens: maxTokens,
		client:    client,
		logger:    logger,
	}
}

func (a *anthropicStyle) Name() string {
	return "anthropic"
}

// Analyze posts a single-turn message and returns the first text block of
// the response.
func (a *anthropicStyle) Analyze(ctx context.Context, prompt string) (string, error) {
	body := map[string]interface{}{
		"model":       a.model,
		"max_tokens":  a.maxTokens,
		"temperature": 0.1,
		"messages":    []chatMessage{{Role: "user", Content: prompt}},
	}

	var parsed anthropicResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("x-api-key", a.apiKey).
		SetHeader("anthropic-version", anthropicVersion).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&parsed).
		Post(a.baseURL + "/v1/messages")
	if err != nil {
		return "", classifyTransportError(a.Name(), err)
	}
	if resp.IsError() {
		return "", classifyStatus(a.Name(), resp.StatusCode(), resp.String())
	}
	if parsed.Error != nil {
		return "", newError(KindOther, a.Name(), parsed.Error.Message, nil)
	}
	if len(parsed.Content) == 0 {
		return "", newError(KindOther, a.Name(), "response contained no content blocks", nil)
	}

	a.logger.Debug("message completion finished", "provider", a.Name(), "model", a.model)
	return parsed.Content[0].Text, nil
}
