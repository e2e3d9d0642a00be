package provider

import (
	"context"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/codescan-sec/codescan/pkg/shared/config"
)

// openAICompatible talks to any chat-completions endpoint that follows the
// OpenAI request schema. A configurable base URL covers DeepSeek, Qwen and
// other compatible gateways.
type openAICompatible struct {
	name      string
	apiKey    string
	model     string
	baseURL   string
	maxTokens int
	extraBody map[string]interface{}
	client    *resty.Client
	logger    hclog.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func newOpenAICompatible(name string, profile config.ModelProfile, maxTokens int, client *resty.Client, logger hclog.Logger) *openAICompatible {
	baseURL := profile.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &openAICompatible{
		name:      name,
		apiKey:    profile.APIKey,
		model:     profile.Model,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		maxTokens: maxTokens,
		extraBody: profile.ExtraBody,
		client:    client,
		logger:    logger,
	}
}

func (o *openAICompatible) Name() string {
	return o.name
}

// Analyze posts a single-message chat completion and returns the first
// choice's content.
func (o *openAICompatible) Analyze(ctx context.Context, prompt string) (string, error) {
	body := map[string]interface{}{
		"model":       o.model,
		"messages":    []chatMessage{{Role: "user", Content: prompt}},
		"temperature": 0.1,
		"max_tokens":  o.maxTokens,
	}
	for key, value := range o.extraBody {
		body[key] = value
	}

	var parsed chatCompletionResponse
	resp, err := o.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+o.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&parsed).
		Post(o.baseURL + "/chat/completions")
	if err != nil {
		return "", classifyTransportError(o.name, err)
	}
	if resp.IsError() {
		return "", classifyStatus(o.name, resp.StatusCode(), resp.String())
	}
	if parsed.Error != nil {
		return "", newError(KindOther, o.name, parsed.Error.Message, nil)
	}
	if len(parsed.Choices) == 0 {
		return "", newError(KindOther, o.name, "response contained no choices", nil)
	}

	o.logger.Debug("chat completion finished", "provider", o.name, "model", o.model)
	return parsed.Choices[0].Message.Content, nil
}
