package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"voxsearch/internal/logger"
	"voxsearch/pkg/voxtypes"
)

// AnthropicClient implements voxtypes.ProviderClient with the Anthropic SDK.
// The prompt is sent as a single user message, matching the catalog's "messages" payload.
type AnthropicClient struct {
	cfg    ProviderClientConfig
	mu     sync.Mutex
	client *anthropic.Client
}

// NewAnthropicClient creates a new Anthropic client with lazy initialization.
func NewAnthropicClient(cfg ProviderClientConfig) *AnthropicClient {
	return &AnthropicClient{
		cfg:    cfg,
		client: nil, // Will be initialized lazily
	}
}

// GetProviderName returns the provider name for this client.
func (c *AnthropicClient) GetProviderName() string {
	return string(c.cfg.Descriptor.ID)
}

// IsConfigured returns true if the client has a valid API key.
func (c *AnthropicClient) IsConfigured() bool {
	return c.cfg.APIKey != ""
}

func (c *AnthropicClient) initializeClientIfNeeded() (*anthropic.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key not configured")
	}

	options := []option.RequestOption{
		option.WithAPIKey(c.cfg.APIKey),
		option.WithHTTPClient(c.cfg.httpClient()),
		option.WithMaxRetries(0),
	}
	if baseURL := c.cfg.baseURL(); baseURL != "" {
		options = append(options, option.WithBaseURL(withTrailingSlash(baseURL)))
	}
	for key, value := range c.cfg.Descriptor.Headers {
		options = append(options, option.WithHeader(key, value))
	}

	client := anthropic.NewClient(options...)
	c.client = &client

	logger.Debug("Anthropic client initialized", "provider", c.cfg.Descriptor.ID)
	return c.client, nil
}

// GenerateKeywords sends one message and returns the text of the response.
func (c *AnthropicClient) GenerateKeywords(ctx context.Context, req voxtypes.KeywordRequest) (string, error) {
	provider := c.cfg.Descriptor.ID

	client, err := c.initializeClientIfNeeded()
	if err != nil {
		return "", &voxtypes.RemoteRequestFailedError{Provider: provider, Err: err}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}

	message, err := client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &voxtypes.RemoteRequestFailedError{Provider: provider, StatusCode: apiErr.StatusCode, Body: truncateBody(apiErr.Error()), Err: err}
		}
		return "", &voxtypes.RemoteRequestFailedError{Provider: provider, Err: err}
	}

	if len(message.Content) == 0 {
		return "", &voxtypes.RemoteResponseMalformedError{Provider: provider, Path: c.cfg.Descriptor.ResponsePath, Err: errors.New("no content blocks returned")}
	}

	var content strings.Builder
	for _, block := range message.Content {
		content.WriteString(block.Text)
	}

	return checkedText(provider, c.cfg.Descriptor.ResponsePath, content.String())
}
