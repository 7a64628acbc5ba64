package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"voxsearch/pkg/voxtypes"
)

// maxErrorBodyLength caps the response excerpt kept in RemoteRequestFailedError.
const maxErrorBodyLength = 512

// ProviderClientConfig carries what every provider client needs.
type ProviderClientConfig struct {
	Descriptor voxtypes.ProviderDescriptor
	APIKey     string
	// BaseURL overrides Descriptor.BaseURL. Tests point it at a local server.
	BaseURL string
	// Timeout bounds a single request. Zero means the default of 30s.
	Timeout time.Duration
	// Transport replaces the default HTTP transport when set.
	Transport http.RoundTripper
}

func (c ProviderClientConfig) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return c.Descriptor.BaseURL
}

func (c ProviderClientConfig) httpClient() *http.Client {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &http.Client{Timeout: timeout, Transport: c.Transport}
}

// NewProviderClient returns the client implementation selected by the descriptor's client type.
func NewProviderClient(cfg ProviderClientConfig) (voxtypes.ProviderClient, error) {
	switch cfg.Descriptor.ClientType {
	case voxtypes.ClientTypeOpenAI:
		return NewOpenAIClient(cfg), nil
	case voxtypes.ClientTypeAnthropic:
		return NewAnthropicClient(cfg), nil
	case voxtypes.ClientTypeGemini:
		return NewGeminiClient(cfg), nil
	case voxtypes.ClientTypeHTTP:
		return NewHTTPProviderClient(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q has no remote client (client type %q)", voxtypes.ErrUnsupportedProvider, cfg.Descriptor.ID, cfg.Descriptor.ClientType)
	}
}

// extractResponseText pulls the generated text out of a raw response body.
func extractResponseText(provider voxtypes.ProviderID, body []byte, path string) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", &voxtypes.RemoteResponseMalformedError{Provider: provider, Path: path, Err: errors.New("body is not valid JSON")}
	}

	result := gjson.GetBytes(body, path)
	if !result.Exists() {
		return "", &voxtypes.RemoteResponseMalformedError{Provider: provider, Path: path, Err: errors.New("field missing")}
	}
	if result.Type != gjson.String {
		return "", &voxtypes.RemoteResponseMalformedError{Provider: provider, Path: path, Err: fmt.Errorf("expected string, got %s", result.Type)}
	}

	return checkedText(provider, path, result.Str)
}

// checkedText trims generated text and rejects empty results. Blank text is
// reported as malformed so the keyword service falls back to local extraction
// instead of returning an empty query.
func checkedText(provider voxtypes.ProviderID, path string, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &voxtypes.RemoteResponseMalformedError{Provider: provider, Path: path, Err: errors.New("empty text")}
	}
	return text, nil
}

// truncateBody shortens a response body for error messages.
func truncateBody(body string) string {
	body = strings.TrimSpace(body)
	if len(body) <= maxErrorBodyLength {
		return body
	}
	return body[:maxErrorBodyLength] + "..."
}

// withTrailingSlash makes SDK base URLs resolve relative paths below them.
func withTrailingSlash(baseURL string) string {
	if baseURL == "" || strings.HasSuffix(baseURL, "/") {
		return baseURL
	}
	return baseURL + "/"
}
