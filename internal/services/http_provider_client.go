package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"voxsearch/internal/logger"
	"voxsearch/internal/version"
	"voxsearch/pkg/voxtypes"
)

// maxResponseBytes bounds how much of a provider response is read.
const maxResponseBytes = 1 << 20

// HTTPProviderClient implements voxtypes.ProviderClient for providers described
// entirely by their catalog row: endpoint, auth scheme, static headers, payload
// shape and response path. It serves the OpenAI-compatible chat APIs as well as
// Cohere, Ollama and Azure deployments.
type HTTPProviderClient struct {
	descriptor voxtypes.ProviderDescriptor
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewHTTPProviderClient creates a client for a catalog row with client type "http".
func NewHTTPProviderClient(cfg ProviderClientConfig) *HTTPProviderClient {
	return &HTTPProviderClient{
		descriptor: cfg.Descriptor,
		apiKey:     cfg.APIKey,
		baseURL:    cfg.baseURL(),
		httpClient: cfg.httpClient(),
	}
}

// chatMessage is one message of an OpenAI-style chat request.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the "chat" and "chat_deployment" payload. Deployments omit the model.
type chatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// messagesRequest is the Anthropic Messages payload.
type messagesRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

// promptRequest is the Cohere generate payload.
type promptRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// contentsRequest is the Gemini generateContent payload.
type contentsRequest struct {
	Contents         []contentsEntry  `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type contentsEntry struct {
	Parts []contentsPart `json:"parts"`
}

type contentsPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// generateRequest is the Ollama generate payload.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// GetProviderName returns the provider name for this client.
func (c *HTTPProviderClient) GetProviderName() string {
	return string(c.descriptor.ID)
}

// IsConfigured reports whether the client has the credentials its auth scheme needs.
func (c *HTTPProviderClient) IsConfigured() bool {
	if c.descriptor.Auth == voxtypes.AuthNone {
		return true
	}
	return c.apiKey != ""
}

// GenerateKeywords posts one request and returns the trimmed generated text.
// Transport failures and non-2xx statuses return *voxtypes.RemoteRequestFailedError;
// bodies that do not carry text at the response path return *voxtypes.RemoteResponseMalformedError.
func (c *HTTPProviderClient) GenerateKeywords(ctx context.Context, req voxtypes.KeywordRequest) (string, error) {
	provider := c.descriptor.ID

	endpoint, apiKey, err := c.resolveEndpoint(req.Model)
	if err != nil {
		return "", &voxtypes.RemoteRequestFailedError{Provider: provider, Err: err}
	}

	payload, err := buildPayload(c.descriptor.Payload, req)
	if err != nil {
		return "", &voxtypes.RemoteRequestFailedError{Provider: provider, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &voxtypes.RemoteRequestFailedError{Provider: provider, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", "voxsearch/"+version.GetVersion())
	c.setAuthHeader(httpReq, apiKey)
	for key, value := range c.descriptor.Headers {
		httpReq.Header.Set(key, value)
	}

	logger.Debug("HTTP provider request", "provider", provider, "endpoint", endpoint, "payload", c.descriptor.Payload)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &voxtypes.RemoteRequestFailedError{Provider: provider, Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Debug("Failed to close response body", "provider", provider, "error", closeErr)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &voxtypes.RemoteRequestFailedError{Provider: provider, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &voxtypes.RemoteRequestFailedError{Provider: provider, StatusCode: resp.StatusCode, Body: truncateBody(string(body))}
	}

	return extractResponseText(provider, body, c.descriptor.ResponsePath)
}

// resolveEndpoint builds the request URL and the key to send.
// Deployment rows take their resource endpoint from the packed API key.
func (c *HTTPProviderClient) resolveEndpoint(model string) (string, string, error) {
	baseURL := c.baseURL
	apiKey := c.apiKey

	if c.descriptor.Payload == voxtypes.PayloadChatDeployment {
		key, resource := voxtypes.SplitAzureKey(apiKey)
		apiKey = key
		if baseURL == "" {
			baseURL = resource
		}
		if baseURL == "" {
			return "", "", errors.New("resource endpoint missing: store the key as <key>|<endpoint>")
		}
	}

	path := strings.ReplaceAll(c.descriptor.Endpoint, "{model}", url.PathEscape(model))
	return strings.TrimSuffix(baseURL, "/") + path, apiKey, nil
}

func (c *HTTPProviderClient) setAuthHeader(req *http.Request, apiKey string) {
	switch c.descriptor.Auth {
	case voxtypes.AuthBearer:
		req.Header.Set("Authorization", "Bearer "+apiKey)
	case voxtypes.AuthXAPIKey:
		req.Header.Set("x-api-key", apiKey)
	case voxtypes.AuthAPIKey:
		req.Header.Set("api-key", apiKey)
	case voxtypes.AuthGoogKey:
		req.Header.Set("x-goog-api-key", apiKey)
	case voxtypes.AuthNone:
	}
}

// buildPayload encodes the request body for a payload shape.
func buildPayload(shape voxtypes.PayloadShape, req voxtypes.KeywordRequest) ([]byte, error) {
	var payload any

	switch shape {
	case voxtypes.PayloadChat, voxtypes.PayloadChatDeployment:
		chat := chatRequest{
			Messages: []chatMessage{
				{Role: "system", Content: req.SystemPrompt},
				{Role: "user", Content: req.Prompt},
			},
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		}
		if shape == voxtypes.PayloadChat {
			chat.Model = req.Model
		}
		payload = chat
	case voxtypes.PayloadMessages:
		payload = messagesRequest{
			Model:     req.Model,
			Messages:  []chatMessage{{Role: "user", Content: req.Prompt}},
			MaxTokens: req.MaxTokens,
		}
	case voxtypes.PayloadPrompt:
		payload = promptRequest{
			Model:       req.Model,
			Prompt:      req.Prompt,
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
		}
	case voxtypes.PayloadContents:
		payload = contentsRequest{
			Contents: []contentsEntry{{Parts: []contentsPart{{Text: req.Prompt}}}},
			GenerationConfig: generationConfig{
				Temperature:     req.Temperature,
				MaxOutputTokens: req.MaxTokens,
			},
		}
	case voxtypes.PayloadGenerate:
		payload = generateRequest{
			Model:  req.Model,
			Prompt: req.Prompt,
			Stream: false,
		}
	default:
		return nil, fmt.Errorf("unsupported payload shape %q", shape)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", shape, err)
	}
	return data, nil
}
