package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxsearch/pkg/voxtypes"
)

func newTestClientFactory(t *testing.T) *ClientFactoryService {
	t.Helper()
	factory := NewClientFactoryService()
	require.NoError(t, factory.Initialize())
	return factory
}

func TestClientFactoryService_Name(t *testing.T) {
	service := NewClientFactoryService()
	assert.Equal(t, "client_factory", service.Name())
}

func TestClientFactoryService_Initialize(t *testing.T) {
	service := NewClientFactoryService()

	err := service.Initialize()
	assert.NoError(t, err)
	assert.True(t, service.initialized)

	// Duplicate initialization is idempotent
	err = service.Initialize()
	assert.NoError(t, err)
	assert.True(t, service.initialized)
}

func TestClientFactoryService_NotInitialized(t *testing.T) {
	service := NewClientFactoryService()
	_, err := service.GetClient(ProviderClientConfig{Descriptor: testDescriptor(t, voxtypes.ProviderOpenAI), APIKey: "k"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
}

func TestClientFactoryService_GetClient(t *testing.T) {
	tests := []struct {
		name        string
		provider    voxtypes.ProviderID
		apiKey      string
		expectError bool
		errorMsg    string
	}{
		{name: "openai", provider: voxtypes.ProviderOpenAI, apiKey: "sk-test"},
		{name: "anthropic", provider: voxtypes.ProviderAnthropic, apiKey: "sk-ant-test"},
		{name: "gemini", provider: voxtypes.ProviderGemini, apiKey: "goog-test"},
		{name: "groq", provider: voxtypes.ProviderGroq, apiKey: "gsk-test"},
		{name: "ollama without key", provider: voxtypes.ProviderOllama, apiKey: ""},
		{name: "missing key", provider: voxtypes.ProviderMistral, apiKey: "", expectError: true, errorMsg: "API key cannot be empty"},
		{name: "local has no client", provider: voxtypes.ProviderLocal, apiKey: "", expectError: true, errorMsg: "unsupported provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := newTestClientFactory(t)
			client, err := factory.GetClient(ProviderClientConfig{
				Descriptor: testDescriptor(t, tt.provider),
				APIKey:     tt.apiKey,
			})

			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				assert.Nil(t, client)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, string(tt.provider), client.GetProviderName())
		})
	}
}

func TestClientFactoryService_EmptyProvider(t *testing.T) {
	factory := newTestClientFactory(t)
	_, err := factory.GetClient(ProviderClientConfig{APIKey: "k"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider cannot be empty")
}

func TestClientFactoryService_Caching(t *testing.T) {
	factory := newTestClientFactory(t)
	descriptor := testDescriptor(t, voxtypes.ProviderOpenAI)

	first, firstID, err := factory.GetClientWithID(ProviderClientConfig{Descriptor: descriptor, APIKey: "sk-one"})
	require.NoError(t, err)
	second, secondID, err := factory.GetClientWithID(ProviderClientConfig{Descriptor: descriptor, APIKey: "sk-one"})
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, firstID, secondID)
	assert.Equal(t, 1, factory.CachedClients())

	other, otherID, err := factory.GetClientWithID(ProviderClientConfig{Descriptor: descriptor, APIKey: "sk-two"})
	require.NoError(t, err)
	assert.NotSame(t, first, other)
	assert.NotEqual(t, firstID, otherID)

	_, _, err = factory.GetClientWithID(ProviderClientConfig{Descriptor: descriptor, APIKey: "sk-one", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	assert.Equal(t, 3, factory.CachedClients())

	factory.ClearCache()
	assert.Equal(t, 0, factory.CachedClients())
}

func TestGenerateClientID(t *testing.T) {
	descriptor := testDescriptor(t, voxtypes.ProviderOpenAI)

	id := generateClientID(ProviderClientConfig{Descriptor: descriptor, APIKey: "sk-secret-key"})
	assert.True(t, strings.HasPrefix(id, "openai:"))
	assert.NotContains(t, id, "sk-secret-key")
	assert.Contains(t, id, "@https://api.openai.com/v1/")
	assert.True(t, strings.HasSuffix(id, "30s"))

	// Deterministic
	assert.Equal(t, id, generateClientID(ProviderClientConfig{Descriptor: descriptor, APIKey: "sk-secret-key"}))

	empty := generateClientID(ProviderClientConfig{Descriptor: descriptor})
	assert.Contains(t, empty, "openai:empty***")

	custom := generateClientID(ProviderClientConfig{Descriptor: descriptor, APIKey: "sk-secret-key", Timeout: 5 * time.Second})
	assert.NotEqual(t, id, custom)
}
