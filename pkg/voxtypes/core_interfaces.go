// Package voxtypes defines core architectural interfaces for voxsearch.
// This file contains the service contract and the provider client abstraction
// that every remote keyword provider implements.
package voxtypes

import "context"

// Service defines the interface for voxsearch services.
// Services are registered at startup and initialized before first use.
type Service interface {
	Name() string
	Initialize() error
}

// KeywordRequest is a single remote keyword extraction request.
type KeywordRequest struct {
	Transcript   string
	Model        string
	Prompt       string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

// ProviderClient sends one keyword extraction request to a remote provider
// and returns the generated text, already trimmed.
type ProviderClient interface {
	GetProviderName() string
	IsConfigured() bool
	GenerateKeywords(ctx context.Context, req KeywordRequest) (string, error)
}
