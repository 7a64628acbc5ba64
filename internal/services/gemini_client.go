package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"voxsearch/internal/logger"
	"voxsearch/pkg/voxtypes"
)

// geminiAPIVersion is the Generative Language API version used by the catalog row.
const geminiAPIVersion = "v1beta"

// GeminiClient implements voxtypes.ProviderClient with the Google GenAI SDK.
// The model comes from the configuration rather than being fixed in the endpoint.
type GeminiClient struct {
	cfg    ProviderClientConfig
	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiClient creates a new Gemini client with lazy initialization.
func NewGeminiClient(cfg ProviderClientConfig) *GeminiClient {
	return &GeminiClient{
		cfg:    cfg,
		client: nil, // Will be initialized lazily
	}
}

// GetProviderName returns the provider name for this client.
func (c *GeminiClient) GetProviderName() string {
	return string(c.cfg.Descriptor.ID)
}

// IsConfigured returns true if the client has a valid API key.
func (c *GeminiClient) IsConfigured() bool {
	return c.cfg.APIKey != ""
}

func (c *GeminiClient) initializeClientIfNeeded(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("google API key not configured")
	}

	// The SDK authenticates with the x-goog-api-key header, not a Bearer token.
	clientConfig := &genai.ClientConfig{
		APIKey:     c.cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.cfg.httpClient(),
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    withTrailingSlash(c.cfg.baseURL()),
			APIVersion: geminiAPIVersion,
		},
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c.client = client
	logger.Debug("Gemini client initialized", "provider", c.cfg.Descriptor.ID)
	return c.client, nil
}

// GenerateKeywords sends one generateContent request and returns the first candidate's text.
func (c *GeminiClient) GenerateKeywords(ctx context.Context, req voxtypes.KeywordRequest) (string, error) {
	provider := c.cfg.Descriptor.ID

	client, err := c.initializeClientIfNeeded(ctx)
	if err != nil {
		return "", &voxtypes.RemoteRequestFailedError{Provider: provider, Err: err}
	}

	temperature := float32(req.Temperature)
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(req.MaxTokens),
	}
	contents := []*genai.Content{
		{Parts: []*genai.Part{{Text: req.Prompt}}, Role: genai.RoleUser},
	}

	result, err := client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		var apiErr *genai.APIError
		if errors.As(err, &apiErr) {
			return "", &voxtypes.RemoteRequestFailedError{Provider: provider, StatusCode: apiErr.Code, Body: truncateBody(apiErr.Message), Err: err}
		}
		return "", &voxtypes.RemoteRequestFailedError{Provider: provider, Err: err}
	}

	path := c.cfg.Descriptor.ResponsePath
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", &voxtypes.RemoteResponseMalformedError{Provider: provider, Path: path, Err: errors.New("no candidate content returned")}
	}

	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		text.WriteString(part.Text)
	}

	return checkedText(provider, path, text.String())
}
