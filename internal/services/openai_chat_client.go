package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"voxsearch/internal/logger"
	"voxsearch/pkg/voxtypes"
)

// OpenAIClient implements voxtypes.ProviderClient with the official OpenAI SDK.
// The SDK client is created lazily on the first request.
type OpenAIClient struct {
	cfg    ProviderClientConfig
	mu     sync.Mutex
	client *openai.Client
}

// NewOpenAIClient creates a new OpenAI client with lazy initialization.
func NewOpenAIClient(cfg ProviderClientConfig) *OpenAIClient {
	return &OpenAIClient{
		cfg:    cfg,
		client: nil, // Will be initialized lazily
	}
}

// GetProviderName returns the provider name for this client.
func (c *OpenAIClient) GetProviderName() string {
	return string(c.cfg.Descriptor.ID)
}

// IsConfigured returns true if the client has a valid API key.
func (c *OpenAIClient) IsConfigured() bool {
	return c.cfg.APIKey != ""
}

// initializeClientIfNeeded initializes the OpenAI client if it hasn't been initialized yet.
func (c *OpenAIClient) initializeClientIfNeeded() (*openai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not configured")
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

	client := openai.NewClient(options...)
	c.client = &client

	logger.Debug("OpenAI client initialized", "provider", c.cfg.Descriptor.ID)
	return c.client, nil
}

// GenerateKeywords sends a system + user chat completion and returns the first choice's text.
func (c *OpenAIClient) GenerateKeywords(ctx context.Context, req voxtypes.KeywordRequest) (string, error) {
	provider := c.cfg.Descriptor.ID

	client, err := c.initializeClientIfNeeded()
	if err != nil {
		return "", &voxtypes.RemoteRequestFailedError{Provider: provider, Err: err}
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(req.Temperature),
		MaxTokens:   openai.Int(int64(req.MaxTokens)),
	}

	completion, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", openAIRequestError(provider, err)
	}

	if len(completion.Choices) == 0 {
		return "", &voxtypes.RemoteResponseMalformedError{Provider: provider, Path: c.cfg.Descriptor.ResponsePath, Err: errors.New("no choices returned")}
	}

	return checkedText(provider, c.cfg.Descriptor.ResponsePath, completion.Choices[0].Message.Content)
}

func openAIRequestError(provider voxtypes.ProviderID, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &voxtypes.RemoteRequestFailedError{Provider: provider, StatusCode: apiErr.StatusCode, Body: truncateBody(apiErr.Error()), Err: err}
	}
	return &voxtypes.RemoteRequestFailedError{Provider: provider, Err: err}
}
