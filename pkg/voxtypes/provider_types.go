// Package voxtypes defines provider-related data structures for voxsearch's keyword providers.
// This file contains the core types for representing provider identities, user configuration,
// and the static catalog rows that describe how each provider is called.
package voxtypes

import (
	"fmt"
	"strings"
)

// ProviderID identifies a keyword extraction provider.
type ProviderID string

// Known providers. ProviderLocal is the in-process fallback and never touches the network.
const (
	ProviderOpenAI     ProviderID = "openai"
	ProviderAnthropic  ProviderID = "anthropic"
	ProviderMistral    ProviderID = "mistral"
	ProviderGroq       ProviderID = "groq"
	ProviderCohere     ProviderID = "cohere"
	ProviderOpenRouter ProviderID = "openrouter"
	ProviderOllama     ProviderID = "ollama"
	ProviderGemini     ProviderID = "gemini"
	ProviderAzure      ProviderID = "azure"
	ProviderLocal      ProviderID = "local"
)

// AllProviders lists every supported provider in catalog order.
var AllProviders = []ProviderID{
	ProviderOpenAI,
	ProviderAnthropic,
	ProviderMistral,
	ProviderGroq,
	ProviderCohere,
	ProviderOpenRouter,
	ProviderOllama,
	ProviderGemini,
	ProviderAzure,
	ProviderLocal,
}

// ParseProviderID converts a user supplied provider name into a ProviderID.
// Matching is case-insensitive and ignores surrounding whitespace.
// Unknown names return an error wrapping ErrUnsupportedProvider.
func ParseProviderID(name string) (ProviderID, error) {
	normalized := ProviderID(strings.ToLower(strings.TrimSpace(name)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, name)
}

// IsValid reports whether the id is one of the known providers.
func (id ProviderID) IsValid() bool {
	for _, known := range AllProviders {
		if id == known {
			return true
		}
	}
	return false
}

// String returns the provider id as a plain string.
func (id ProviderID) String() string {
	return string(id)
}

// azureKeySeparator joins the Azure API key and endpoint into a single secret.
const azureKeySeparator = "|"

// ProviderConfig is the user's provider selection handed to the keyword adapter.
// No network call is attempted when Provider is ProviderLocal or APIKey is empty.
type ProviderConfig struct {
	Provider ProviderID `yaml:"provider" json:"provider" mapstructure:"provider"`
	APIKey   string     `yaml:"api_key" json:"apiKey" mapstructure:"api_key"`
	Model    string     `yaml:"model" json:"model" mapstructure:"model"`
}

// IsRemote reports whether the configuration would issue a network request.
func (c ProviderConfig) IsRemote() bool {
	return c.Provider != ProviderLocal && c.APIKey != ""
}

// PackAzureKey combines an Azure API key and resource endpoint into the single
// secret stored in ProviderConfig.APIKey.
func PackAzureKey(key, endpoint string) string {
	return key + azureKeySeparator + endpoint
}

// SplitAzureKey splits a packed Azure secret on the first separator.
// A secret without a separator is returned as the key with an empty endpoint.
func SplitAzureKey(packed string) (key, endpoint string) {
	key, endpoint, _ = strings.Cut(packed, azureKeySeparator)
	return key, endpoint
}

// ClientType selects the client implementation used for a catalog row.
type ClientType string

// Supported client implementations.
const (
	ClientTypeOpenAI    ClientType = "openai"
	ClientTypeAnthropic ClientType = "anthropic"
	ClientTypeGemini    ClientType = "gemini"
	ClientTypeHTTP      ClientType = "http"
	ClientTypeLocal     ClientType = "local"
)

// AuthScheme describes how the API key is presented to the provider.
type AuthScheme string

// Supported authentication schemes.
const (
	AuthBearer  AuthScheme = "bearer"
	AuthXAPIKey AuthScheme = "x-api-key"
	AuthAPIKey  AuthScheme = "api-key"
	AuthGoogKey AuthScheme = "x-goog-api-key"
	AuthNone    AuthScheme = "none"
)

// PayloadShape names the request envelope a provider expects.
type PayloadShape string

// Supported payload envelopes.
const (
	// PayloadChat is {model, messages:[system,user], temperature, max_tokens}.
	PayloadChat PayloadShape = "chat"
	// PayloadChatDeployment is PayloadChat without the model field; the model is part of the URL.
	PayloadChatDeployment PayloadShape = "chat_deployment"
	// PayloadMessages is {model, messages:[user], max_tokens}.
	PayloadMessages PayloadShape = "messages"
	// PayloadPrompt is {model, prompt, max_tokens, temperature}.
	PayloadPrompt PayloadShape = "prompt"
	// PayloadContents is {contents:[{parts:[{text}]}], generationConfig:{...}}.
	PayloadContents PayloadShape = "contents"
	// PayloadGenerate is {model, prompt, stream:false}.
	PayloadGenerate PayloadShape = "generate"
	// PayloadNone marks providers that never build a request.
	PayloadNone PayloadShape = "none"
)

// ProviderModel is a model offered by a provider.
type ProviderModel struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
	Badge string `yaml:"badge,omitempty" json:"badge,omitempty"`
}

// ProviderDescriptor is a static catalog row describing how to call one provider.
// Descriptors are loaded once from the embedded catalog and never mutated.
type ProviderDescriptor struct {
	// ID is the provider id this row describes.
	ID ProviderID `yaml:"id" json:"id"`

	// DisplayName is a human-readable provider name (e.g., "Mistral AI").
	DisplayName string `yaml:"display_name" json:"display_name"`

	// Description briefly describes the provider.
	Description string `yaml:"description" json:"description"`

	// Website is where users obtain API keys.
	Website string `yaml:"website" json:"website"`

	// ClientType selects the client implementation.
	ClientType ClientType `yaml:"client_type" json:"client_type"`

	// BaseURL is the API base URL. Azure rows leave it empty; the endpoint comes from the key.
	BaseURL string `yaml:"base_url" json:"base_url"`

	// Endpoint is the path appended to BaseURL. "{model}" is replaced by the configured model.
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// Auth is the authentication scheme for the API key.
	Auth AuthScheme `yaml:"auth" json:"auth"`

	// Headers are static headers sent with every request.
	Headers map[string]string `yaml:"headers" json:"headers"`

	// Payload is the request envelope shape.
	Payload PayloadShape `yaml:"payload" json:"payload"`

	// ResponsePath is the gjson path of the generated text in the response body.
	ResponsePath string `yaml:"response_path" json:"response_path"`

	// RequiresAPIKey reports whether the provider needs a key to be usable.
	RequiresAPIKey bool `yaml:"requires_api_key" json:"requires_api_key"`

	// Models lists the models offered in the settings UI.
	Models []ProviderModel `yaml:"models" json:"models"`
}

// ProviderCatalogFile is the structure of the embedded provider catalog YAML file.
type ProviderCatalogFile struct {
	Providers []ProviderDescriptor `yaml:"providers"`
}
