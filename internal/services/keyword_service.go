package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"voxsearch/internal/logger"
	"voxsearch/pkg/extraction"
	"voxsearch/pkg/voxtypes"
)

// Fixed generation parameters sent to every remote provider.
const (
	keywordTemperature  = 0.3
	keywordMaxTokens    = 150
	keywordSystemPrompt = "You are a search keyword extraction specialist."
)

const keywordPromptTemplate = `You are a search keyword extraction specialist. Your task is to analyze the user's input and extract the most effective search keywords or phrases for a Google search.

Guidelines:
1. Focus ONLY on extracting the most relevant search terms
2. Remove all filler words, articles, and unnecessary context
3. Identify the core search intent and primary entities
4. Format keywords in a way that would yield the best search results
5. Correct any speech-to-text errors that are obvious
6. Use Boolean operators (AND, OR, site:, etc.) when appropriate
7. Include exact phrases in quotes when precision is needed
8. For complex queries, structure with appropriate operators

User's input: "%s"

Return ONLY the optimized search keywords without any explanations, introductions, or additional text.`

// KeywordSource reports which path produced a keyword string.
type KeywordSource string

// Keyword sources.
const (
	SourceRemote   KeywordSource = "remote"
	SourceLocal    KeywordSource = "local"
	SourceFallback KeywordSource = "fallback"
)

// KeywordResult is the outcome of one ProcessVoiceInput call.
type KeywordResult struct {
	Keywords  string
	RequestID string
	Provider  voxtypes.ProviderID
	Model     string
	Source    KeywordSource
	// RemoteErr is the recovered remote failure when Source is SourceFallback.
	RemoteErr error
}

// KeywordServiceOptions tunes remote requests.
type KeywordServiceOptions struct {
	// Timeout bounds one remote request. Zero means 30s.
	Timeout time.Duration
	// BaseURLs overrides catalog base URLs per provider.
	BaseURLs map[voxtypes.ProviderID]string
	// Transport replaces the HTTP transport of every provider client.
	Transport http.RoundTripper
	// Extraction configures the local extractor. Nil uses the default settings.
	Extraction *voxtypes.ExtractionOptions
}

// KeywordService turns a transcript into a search query, asking the configured
// provider first and falling back to local extraction when the remote step fails.
type KeywordService struct {
	initialized bool
	opts        KeywordServiceOptions
	catalog     *ProviderCatalogService
	factory     *ClientFactoryService
}

// NewKeywordService creates a KeywordService backed by the given catalog and client factory.
func NewKeywordService(catalog *ProviderCatalogService, factory *ClientFactoryService, opts KeywordServiceOptions) *KeywordService {
	return &KeywordService{
		initialized: false,
		opts:        opts,
		catalog:     catalog,
		factory:     factory,
	}
}

// Name returns the service name "keyword" for registration.
func (k *KeywordService) Name() string {
	return "keyword"
}

// Initialize makes sure the catalog and client factory are ready.
func (k *KeywordService) Initialize() error {
	if k.catalog == nil || k.factory == nil {
		return fmt.Errorf("keyword service requires a provider catalog and a client factory")
	}
	if err := k.catalog.Initialize(); err != nil {
		return err
	}
	if err := k.factory.Initialize(); err != nil {
		return err
	}
	k.initialized = true
	logger.ServiceOperation("keyword", "initialize", "completed")
	return nil
}

// ProcessVoiceInput returns search keywords for transcript.
// The only error is one wrapping voxtypes.ErrUnsupportedProvider; every remote
// failure is logged and answered with local extraction.
func (k *KeywordService) ProcessVoiceInput(ctx context.Context, transcript string, cfg voxtypes.ProviderConfig) (string, error) {
	result, err := k.Process(ctx, transcript, cfg)
	if err != nil {
		return "", err
	}
	return result.Keywords, nil
}

// Process is ProcessVoiceInput with the request id and source attached.
func (k *KeywordService) Process(ctx context.Context, transcript string, cfg voxtypes.ProviderConfig) (KeywordResult, error) {
	result := KeywordResult{
		RequestID: uuid.New().String(),
		Provider:  cfg.Provider,
		Model:     cfg.Model,
	}

	if !k.initialized {
		return result, fmt.Errorf("keyword service not initialized")
	}

	if !cfg.Provider.IsValid() {
		return result, fmt.Errorf("%w: %q", voxtypes.ErrUnsupportedProvider, cfg.Provider)
	}

	if strings.TrimSpace(transcript) == "" {
		result.Source = SourceLocal
		return result, nil
	}

	if !cfg.IsRemote() {
		result.Keywords = k.localKeywords(transcript)
		result.Source = SourceLocal
		logger.Debug("Using local keyword extraction", "request_id", result.RequestID, "provider", cfg.Provider)
		return result, nil
	}

	keywords, model, err := k.queryProvider(ctx, result.RequestID, transcript, cfg)
	result.Model = model
	if err == nil {
		result.Keywords = keywords
		result.Source = SourceRemote
		return result, nil
	}

	if errors.Is(err, voxtypes.ErrUnsupportedProvider) {
		return result, err
	}

	logger.Fallback(result.RequestID, string(cfg.Provider), err)
	result.Keywords = k.localKeywords(transcript)
	result.Source = SourceFallback
	result.RemoteErr = err
	return result, nil
}

// QueryProvider performs only the remote step and returns its typed errors.
// Local configurations and configurations without a key return voxtypes.ErrNoRemote.
func (k *KeywordService) QueryProvider(ctx context.Context, transcript string, cfg voxtypes.ProviderConfig) (string, error) {
	if !k.initialized {
		return "", fmt.Errorf("keyword service not initialized")
	}
	if !cfg.Provider.IsValid() {
		return "", fmt.Errorf("%w: %q", voxtypes.ErrUnsupportedProvider, cfg.Provider)
	}
	if !cfg.IsRemote() {
		return "", voxtypes.ErrNoRemote
	}

	keywords, _, err := k.queryProvider(ctx, uuid.New().String(), transcript, cfg)
	return keywords, err
}

func (k *KeywordService) queryProvider(ctx context.Context, requestID string, transcript string, cfg voxtypes.ProviderConfig) (string, string, error) {
	descriptor, err := k.catalog.GetProvider(cfg.Provider)
	if err != nil {
		return "", cfg.Model, err
	}

	model := cfg.Model
	if model == "" {
		model = k.catalog.DefaultModel(cfg.Provider)
	}

	client, err := k.factory.GetClient(ProviderClientConfig{
		Descriptor: descriptor,
		APIKey:     cfg.APIKey,
		BaseURL:    k.opts.BaseURLs[cfg.Provider],
		Timeout:    k.timeout(),
		Transport:  k.opts.Transport,
	})
	if err != nil {
		if errors.Is(err, voxtypes.ErrUnsupportedProvider) {
			return "", model, err
		}
		return "", model, &voxtypes.RemoteRequestFailedError{Provider: cfg.Provider, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, k.timeout())
	defer cancel()

	logger.ProviderRequest(requestID, string(cfg.Provider), model, descriptor.Endpoint)
	start := time.Now()

	keywords, err := client.GenerateKeywords(ctx, BuildKeywordRequest(transcript, model))
	if err != nil {
		return "", model, err
	}

	logger.Debug("Provider returned keywords", "request_id", requestID, "provider", cfg.Provider, "elapsed", time.Since(start))
	return keywords, model, nil
}

func (k *KeywordService) localKeywords(transcript string) string {
	if k.opts.Extraction != nil {
		return extraction.ExtractSearchKeywordsWithOptions(transcript, *k.opts.Extraction)
	}
	return extraction.ExtractSearchKeywords(transcript)
}

func (k *KeywordService) timeout() time.Duration {
	if k.opts.Timeout > 0 {
		return k.opts.Timeout
	}
	return defaultRequestTimeout
}

// BuildKeywordRequest fills the prompt template and fixed generation parameters for transcript.
func BuildKeywordRequest(transcript string, model string) voxtypes.KeywordRequest {
	return voxtypes.KeywordRequest{
		Transcript:   transcript,
		Model:        model,
		Prompt:       fmt.Sprintf(keywordPromptTemplate, transcript),
		SystemPrompt: keywordSystemPrompt,
		Temperature:  keywordTemperature,
		MaxTokens:    keywordMaxTokens,
	}
}
