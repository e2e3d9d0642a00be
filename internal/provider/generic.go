package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/codescan-sec/codescan/pkg/shared/config"
)

// genericHTTP posts a plain JSON envelope to an arbitrary completion endpoint
// and extracts the answer from one of several conventionally-named keys.
type genericHTTP struct {
	apiURL  string
	apiKey  string
	headers map[string]string
	params  map[string]interface{}
	client  *resty.Client
	logger  hclog.Logger
}

// responseKeys are tried in order before falling back to stringifying the
// whole payload.
var responseKeys = []string{"response", "output", "result"}

func newGenericHTTP(profile config.ModelProfile, client *resty.Client, logger hclog.Logger) *genericHTTP {
	headers := make(map[string]string, len(profile.Headers)+1)
	for key, value := range profile.Headers {
		headers[key] = value
	}
	if profile.APIKey != "" {
		if _, ok := headers["Authorization"]; !ok {
			headers["Authorization"] = "Bearer " + profile.APIKey
		}
	}
	return &genericHTTP{
		apiURL:  profile.APIURL,
		apiKey:  profile.APIKey,
		headers: headers,
		params:  profile.Params,
		client:  client,
		logger:  logger,
	}
}

func (g *genericHTTP) Name() string {
	return "custom"
}

// Analyze posts {"prompt": ...} plus any configured extra parameters and
// returns the first recognized response field.
func (g *genericHTTP) Analyze(ctx context.Context, prompt string) (string, error) {
	body := map[string]interface{}{"prompt": prompt}
	for key, value := range g.params {
		body[key] = value
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetHeaders(g.headers).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(g.apiURL)
	if err != nil {
		return "", classifyTransportError(g.Name(), err)
	}
	if resp.IsError() {
		return "", classifyStatus(g.Name(), resp.StatusCode(), resp.String())
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return "", newError(KindOther, g.Name(), "response is not a JSON object", err)
	}

	for _, key := range responseKeys {
		if value, ok := payload[key]; ok {
			if text, ok := value.(string); ok {
				return text, nil
			}
			return fmt.Sprintf("%v", value), nil
		}
	}

	g.logger.Debug("no conventional response key found, stringifying payload", "url", g.apiURL)
	return fmt.Sprintf("%v", payload), nil
}
