package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"voxsearch/internal/clientcache"
	"voxsearch/internal/logger"
	"voxsearch/pkg/voxtypes"
)

// ClientFactoryService creates provider clients and caches them by provider,
// hashed API key and base URL.
type ClientFactoryService struct {
	initialized bool
	clients     *clientcache.Cache[voxtypes.ProviderClient]
}

// NewClientFactoryService creates a new ClientFactoryService instance.
func NewClientFactoryService() *ClientFactoryService {
	return &ClientFactoryService{
		initialized: false,
		clients:     clientcache.NewCache[voxtypes.ProviderClient](),
	}
}

// Name returns the service name "client_factory" for registration.
func (f *ClientFactoryService) Name() string {
	return "client_factory"
}

// Initialize sets up the ClientFactoryService for operation.
func (f *ClientFactoryService) Initialize() error {
	logger.ServiceOperation("client_factory", "initialize", "starting")
	f.initialized = true
	logger.ServiceOperation("client_factory", "initialize", "completed")
	return nil
}

// GetClient returns a cached client for cfg, creating one on first use.
func (f *ClientFactoryService) GetClient(cfg ProviderClientConfig) (voxtypes.ProviderClient, error) {
	client, _, err := f.GetClientWithID(cfg)
	return client, err
}

// GetClientWithID returns the client together with its cache identifier.
func (f *ClientFactoryService) GetClientWithID(cfg ProviderClientConfig) (voxtypes.ProviderClient, string, error) {
	if !f.initialized {
		return nil, "", fmt.Errorf("client factory service not initialized")
	}

	if cfg.Descriptor.ID == "" {
		return nil, "", fmt.Errorf("provider cannot be empty")
	}

	if cfg.Descriptor.RequiresAPIKey && cfg.APIKey == "" {
		return nil, "", fmt.Errorf("API key cannot be empty for provider '%s'", cfg.Descriptor.ID)
	}

	clientID := generateClientID(cfg)
	client, err := f.clients.GetOrCreate(clientID, func() (voxtypes.ProviderClient, error) {
		logger.Debug("Creating provider client", "provider", cfg.Descriptor.ID, "clientID", clientID)
		return NewProviderClient(cfg)
	})
	if err != nil {
		return nil, "", err
	}

	return client, clientID, nil
}

// CachedClients returns how many clients are cached.
func (f *ClientFactoryService) CachedClients() int {
	return f.clients.Len()
}

// ClearCache drops every cached client.
func (f *ClientFactoryService) ClearCache() {
	f.clients.Clear()
}

// generateClientID creates a cache key that never contains the raw API key.
// Format: "provider:hash8@baseURL/timeout" (e.g., "openai:a1b2c3d4@https://api.openai.com/v1/30s")
func generateClientID(cfg ProviderClientConfig) string {
	keyPart := "empty***"
	if cfg.APIKey != "" {
		hash := sha256.Sum256([]byte(cfg.APIKey))
		keyPart = hex.EncodeToString(hash[:])[:8]
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return fmt.Sprintf("%s:%s@%s/%s", cfg.Descriptor.ID, keyPart, cfg.baseURL(), timeout)
}
