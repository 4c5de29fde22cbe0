package llm

import (
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// openrouterModels maps friendly names to OpenRouter's "vendor/model" IDs.
var openrouterModels = map[string]string{
	"gpt-4o":       "openai/gpt-4o",
	"gpt-4o-mini":  "openai/gpt-4o-mini",
	"gemini-flash": "google/gemini-2.5-flash",
	"gemini-pro":   "google/gemini-2.5-pro",
}

// OpenRouterProvider talks to OpenRouter's OpenAI-compatible endpoint.
type OpenRouterProvider struct {
	*OpenAIProvider
}

// NewOpenRouterProvider creates a provider targeting the OpenRouter API.
func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenRouterProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}

	model := resolveModel(cfg.Model, openrouterModels)
	if !strings.Contains(model, "/") {
		return nil, fmt.Errorf("openrouter model %q must be a vendor/model ID", cfg.Model)
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = cfg.BaseURL
	if config.BaseURL == "" {
		config.BaseURL = defaultOpenRouterBaseURL
	}
	config.HTTPClient = &attributedClient{
		inner:  config.HTTPClient,
		header:  openRouterHeaders(cfg),
	}

	return &OpenRouterProvider{OpenAIProvider: newOpenAIClientProvider(config, model)}, nil
}

func openRouterHeaders(cfg OpenRouterConfig) http.Header {
	h := http.Header{}
	if cfg.AppName != "" {
		h.Set("X-Title", cfg.AppName)
	}
	if cfg.AppURL != "" {
		h.Set("HTTP-Referer", cfg.AppURL)
	}
	return h
}

// attributedClient stamps fixed headers onto every outgoing request.
type attributedClient struct {
	inner  openai.HTTPDoer
	header http.Header
}

func (c *attributedClient) Do(req *http.Request) (*http.Response, error) {
	for k, v := range c.header {
		req.Header[k] = v
	}
	return c.inner.Do(req)
}
