package services

import (
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"voxsearch/internal/data/embedded"
	"voxsearch/internal/logger"
	"voxsearch/pkg/voxtypes"
)

// ProviderCatalogService provides provider catalog operations for voxsearch.
// The embedded providers.yaml is parsed and validated once; descriptors are read-only afterwards.
type ProviderCatalogService struct {
	initialized bool
	once        sync.Once
	loadErr     error
	providers   []voxtypes.ProviderDescriptor
	byID        map[voxtypes.ProviderID]int
}

// NewProviderCatalogService creates a new ProviderCatalogService instance.
func NewProviderCatalogService() *ProviderCatalogService {
	return &ProviderCatalogService{
		initialized: false,
	}
}

// Name returns the service name "provider_catalog" for registration.
func (p *ProviderCatalogService) Name() string {
	return "provider_catalog"
}

// Initialize loads the embedded catalog.
func (p *ProviderCatalogService) Initialize() error {
	p.once.Do(func() {
		p.providers, p.loadErr = parseProviderCatalog(embedded.ProviderCatalogData)
		if p.loadErr != nil {
			return
		}
		p.byID = make(map[voxtypes.ProviderID]int, len(p.providers))
		for i, provider := range p.providers {
			p.byID[provider.ID] = i
		}
		logger.ServiceOperation("provider_catalog", "initialize", "providers", len(p.providers))
	})
	if p.loadErr != nil {
		return p.loadErr
	}
	p.initialized = true
	return nil
}

// GetProviderCatalog returns every catalog row in catalog order.
func (p *ProviderCatalogService) GetProviderCatalog() ([]voxtypes.ProviderDescriptor, error) {
	if !p.initialized {
		return nil, fmt.Errorf("provider catalog service not initialized")
	}

	providers := make([]voxtypes.ProviderDescriptor, len(p.providers))
	copy(providers, p.providers)
	return providers, nil
}

// GetProvider returns the descriptor for a provider id.
// Unknown ids return an error wrapping voxtypes.ErrUnsupportedProvider.
func (p *ProviderCatalogService) GetProvider(id voxtypes.ProviderID) (voxtypes.ProviderDescriptor, error) {
	if !p.initialized {
		return voxtypes.ProviderDescriptor{}, fmt.Errorf("provider catalog service not initialized")
	}

	idx, ok := p.byID[id]
	if !ok {
		return voxtypes.ProviderDescriptor{}, fmt.Errorf("%w: %q", voxtypes.ErrUnsupportedProvider, id)
	}
	return p.providers[idx], nil
}

// GetProviderModels returns the models offered by a provider, or an empty list for unknown ids.
func (p *ProviderCatalogService) GetProviderModels(id voxtypes.ProviderID) []voxtypes.ProviderModel {
	descriptor, err := p.GetProvider(id)
	if err != nil {
		return []voxtypes.ProviderModel{}
	}
	return descriptor.Models
}

// DefaultModel returns the first model listed for a provider, or "" if it lists none.
func (p *ProviderCatalogService) DefaultModel(id voxtypes.ProviderID) string {
	models := p.GetProviderModels(id)
	if len(models) == 0 {
		return ""
	}
	return models[0].Value
}

// SearchProviderCatalog returns providers whose id, name or description contains query.
func (p *ProviderCatalogService) SearchProviderCatalog(query string) ([]voxtypes.ProviderDescriptor, error) {
	providers, err := p.GetProviderCatalog()
	if err != nil {
		return nil, err
	}

	queryLower := strings.ToLower(query)
	var matches []voxtypes.ProviderDescriptor
	for _, provider := range providers {
		if strings.Contains(strings.ToLower(string(provider.ID)), queryLower) ||
			strings.Contains(strings.ToLower(provider.DisplayName), queryLower) ||
			strings.Contains(strings.ToLower(provider.Description), queryLower) {
			matches = append(matches, provider)
		}
	}
	return matches, nil
}

// parseProviderCatalog decodes and validates a provider catalog YAML document.
func parseProviderCatalog(data []byte) ([]voxtypes.ProviderDescriptor, error) {
	var file voxtypes.ProviderCatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse provider catalog: %w", err)
	}

	seen := make(map[voxtypes.ProviderID]bool, len(file.Providers))
	for _, provider := range file.Providers {
		if err := validateDescriptor(provider); err != nil {
			return nil, fmt.Errorf("provider catalog validation failed: %w", err)
		}
		if seen[provider.ID] {
			return nil, fmt.Errorf("provider catalog validation failed: duplicate provider ID %q", provider.ID)
		}
		seen[provider.ID] = true
	}

	for _, id := range voxtypes.AllProviders {
		if !seen[id] {
			return nil, fmt.Errorf("provider catalog validation failed: missing provider %q", id)
		}
	}

	return file.Providers, nil
}

func validateDescriptor(d voxtypes.ProviderDescriptor) error {
	if !d.ID.IsValid() {
		return fmt.Errorf("%w: %q", voxtypes.ErrUnsupportedProvider, d.ID)
	}

	switch d.ClientType {
	case voxtypes.ClientTypeLocal:
		return nil
	case voxtypes.ClientTypeOpenAI, voxtypes.ClientTypeAnthropic, voxtypes.ClientTypeGemini, voxtypes.ClientTypeHTTP:
	default:
		return fmt.Errorf("provider %q has unknown client type %q", d.ID, d.ClientType)
	}

	if d.Endpoint == "" {
		return fmt.Errorf("provider %q has no endpoint", d.ID)
	}
	if d.ResponsePath == "" {
		return fmt.Errorf("provider %q has no response path", d.ID)
	}
	// Only deployment-style rows take their base URL from the API key.
	if d.BaseURL == "" && d.Payload != voxtypes.PayloadChatDeployment {
		return fmt.Errorf("provider %q has no base URL", d.ID)
	}
	if d.ClientType == voxtypes.ClientTypeHTTP {
		switch d.Payload {
		case voxtypes.PayloadChat, voxtypes.PayloadChatDeployment, voxtypes.PayloadMessages,
			voxtypes.PayloadPrompt, voxtypes.PayloadContents, voxtypes.PayloadGenerate:
		default:
			return fmt.Errorf("provider %q has unsupported payload %q", d.ID, d.Payload)
		}
	}
	return nil
}
