package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxsearch/internal/version"
	"voxsearch/pkg/voxtypes"
)

// testDescriptor returns the embedded catalog row for id.
func testDescriptor(t *testing.T, id voxtypes.ProviderID) voxtypes.ProviderDescriptor {
	t.Helper()
	catalog := NewProviderCatalogService()
	require.NoError(t, catalog.Initialize())
	descriptor, err := catalog.GetProvider(id)
	require.NoError(t, err)
	return descriptor
}

// capturedRequest is what a fake provider server saw.
type capturedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   map[string]any
}

// newFakeProvider starts a server that records the request and replies with status and body.
func newFakeProvider(t *testing.T, status int, body string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Method = r.Method
		captured.Path = r.URL.Path
		captured.Query = r.URL.RawQuery
		captured.Header = r.Header.Clone()
		raw, _ := io.ReadAll(r.Body)
		captured.Body = map[string]any{}
		_ = json.Unmarshal(raw, &captured.Body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, captured
}

func TestHTTPProviderClient_ChatPayload(t *testing.T) {
	server, captured := newFakeProvider(t, http.StatusOK, `{"choices":[{"message":{"content":"  rust ownership  "}}]}`)

	client := NewHTTPProviderClient(ProviderClientConfig{
		Descriptor: testDescriptor(t, voxtypes.ProviderMistral),
		APIKey:     "mistral-key",
		BaseURL:    server.URL,
	})

	text, err := client.GenerateKeywords(context.Background(), BuildKeywordRequest("explain rust ownership", "mistral-small"))
	require.NoError(t, err)
	assert.Equal(t, "rust ownership", text)

	assert.Equal(t, http.MethodPost, captured.Method)
	assert.Equal(t, "/chat/completions", captured.Path)
	assert.Equal(t, "Bearer mistral-key", captured.Header.Get("Authorization"))
	assert.Equal(t, "application/json", captured.Header.Get("Content-Type"))
	assert.Equal(t, "voxsearch/"+version.GetVersion(), captured.Header.Get("User-Agent"))

	assert.Equal(t, "mistral-small", captured.Body["model"])
	assert.Equal(t, 0.3, captured.Body["temperature"])
	assert.Equal(t, float64(150), captured.Body["max_tokens"])

	messages, ok := captured.Body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	system := messages[0].(map[string]any)
	user := messages[1].(map[string]any)
	assert.Equal(t, "system", system["role"])
	assert.Equal(t, "You are a search keyword extraction specialist.", system["content"])
	assert.Equal(t, "user", user["role"])
	assert.Contains(t, user["content"], `User's input: "explain rust ownership"`)
}

func TestHTTPProviderClient_OpenRouterHeaders(t *testing.T) {
	server, captured := newFakeProvider(t, http.StatusOK, `{"choices":[{"message":{"content":"llama benchmarks"}}]}`)

	client := NewHTTPProviderClient(ProviderClientConfig{
		Descriptor: testDescriptor(t, voxtypes.ProviderOpenRouter),
		APIKey:     "or-key",
		BaseURL:    server.URL,
	})

	_, err := client.GenerateKeywords(context.Background(), BuildKeywordRequest("llama benchmarks", "meta-llama/llama-3-8b-instruct"))
	require.NoError(t, err)

	assert.Equal(t, "Bearer or-key", captured.Header.Get("Authorization"))
	assert.NotEmpty(t, captured.Header.Get("HTTP-Referer"))
	assert.Equal(t, "Multi-Search AI", captured.Header.Get("X-Title"))
}

func TestHTTPProviderClient_AzureDeployment(t *testing.T) {
	server, captured := newFakeProvider(t, http.StatusOK, `{"choices":[{"message":{"content":"azure keywords"}}]}`)

	client := NewHTTPProviderClient(ProviderClientConfig{
		Descriptor: testDescriptor(t, voxtypes.ProviderAzure),
		APIKey:     voxtypes.PackAzureKey("az-key", server.URL),
	})

	text, err := client.GenerateKeywords(context.Background(), BuildKeywordRequest("azure question", "gpt-4"))
	require.NoError(t, err)
	assert.Equal(t, "azure keywords", text)

	assert.Equal(t, "/openai/deployments/gpt-4/chat/completions", captured.Path)
	assert.Equal(t, "api-version=2023-05-15", captured.Query)
	assert.Equal(t, "az-key", captured.Header.Get("api-key"))
	assert.Empty(t, captured.Header.Get("Authorization"))
	assert.NotContains(t, captured.Body, "model")
	assert.Contains(t, captured.Body, "messages")
}

func TestHTTPProviderClient_AzureMissingEndpoint(t *testing.T) {
	client := NewHTTPProviderClient(ProviderClientConfig{
		Descriptor: testDescriptor(t, voxtypes.ProviderAzure),
		APIKey:     "az-key-without-endpoint",
	})

	_, err := client.GenerateKeywords(context.Background(), BuildKeywordRequest("anything", "gpt-4"))

	var reqErr *voxtypes.RemoteRequestFailedError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, voxtypes.ProviderAzure, reqErr.Provider)
	assert.Zero(t, reqErr.StatusCode)
}

func TestHTTPProviderClient_CoherePrompt(t *testing.T) {
	server, captured := newFakeProvider(t, http.StatusOK, `{"generations":[{"text":"cohere keywords\n"}]}`)

	client := NewHTTPProviderClient(ProviderClientConfig{
		Descriptor: testDescriptor(t, voxtypes.ProviderCohere),
		APIKey:     "co-key",
		BaseURL:    server.URL,
	})

	text, err := client.GenerateKeywords(context.Background(), BuildKeywordRequest("cohere test", "command"))
	require.NoError(t, err)
	assert.Equal(t, "cohere keywords", text)

	assert.Equal(t, "/generate", captured.Path)
	assert.Equal(t, "command", captured.Body["model"])
	assert.Contains(t, captured.Body["prompt"], `User's input: "cohere test"`)
	assert.Equal(t, float64(150), captured.Body["max_tokens"])
	assert.Equal(t, 0.3, captured.Body["temperature"])
	assert.NotContains(t, captured.Body, "messages")
}

func TestHTTPProviderClient_OllamaWithoutAuth(t *testing.T) {
	server, captured := newFakeProvider(t, http.StatusOK, `{"response":"local llm keywords","done":true}`)

	client := NewHTTPProviderClient(ProviderClientConfig{
		Descriptor: testDescriptor(t, voxtypes.ProviderOllama),
		APIKey:     "unused",
		BaseURL:    server.URL,
	})
	assert.True(t, client.IsConfigured())

	text, err := client.GenerateKeywords(context.Background(), BuildKeywordRequest("ollama test", "llama3"))
	require.NoError(t, err)
	assert.Equal(t, "local llm keywords", text)

	assert.Equal(t, "/api/generate", captured.Path)
	assert.Empty(t, captured.Header.Get("Authorization"))
	assert.Equal(t, "llama3", captured.Body["model"])
	assert.Equal(t, false, captured.Body["stream"])
}

func TestHTTPProviderClient_NonSuccessStatus(t *testing.T) {
	server, _ := newFakeProvider(t, http.StatusUnauthorized, `{"error":"bad key"}`)

	client := NewHTTPProviderClient(ProviderClientConfig{
		Descriptor: testDescriptor(t, voxtypes.ProviderGroq),
		APIKey:     "groq-key",
		BaseURL:    server.URL,
	})

	_, err := client.GenerateKeywords(context.Background(), BuildKeywordRequest("anything", "gemma-7b-it"))

	var reqErr *voxtypes.RemoteRequestFailedError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusUnauthorized, reqErr.StatusCode)
	assert.Equal(t, `{"error":"bad key"}`, reqErr.Body)
	assert.Contains(t, reqErr.Error(), "401")
}

func TestHTTPProviderClient_MalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `<html>oops</html>`},
		{name: "missing field", body: `{"choices":[]}`},
		{name: "non-string content", body: `{"choices":[{"message":{"content":42}}]}`},
		{name: "empty content", body: `{"choices":[{"message":{"content":"   "}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newFakeProvider(t, http.StatusOK, tt.body)
			client := NewHTTPProviderClient(ProviderClientConfig{
				Descriptor: testDescriptor(t, voxtypes.ProviderMistral),
				APIKey:     "key",
				BaseURL:    server.URL,
			})

			_, err := client.GenerateKeywords(context.Background(), BuildKeywordRequest("anything", "mistral-tiny"))

			var malformed *voxtypes.RemoteResponseMalformedError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, "choices.0.message.content", malformed.Path)
		})
	}
}

func TestHTTPProviderClient_TransportError(t *testing.T) {
	server, _ := newFakeProvider(t, http.StatusOK, `{}`)
	url := server.URL
	server.Close()

	client := NewHTTPProviderClient(ProviderClientConfig{
		Descriptor: testDescriptor(t, voxtypes.ProviderMistral),
		APIKey:     "key",
		BaseURL:    url,
	})

	_, err := client.GenerateKeywords(context.Background(), BuildKeywordRequest("anything", "mistral-tiny"))

	var reqErr *voxtypes.RemoteRequestFailedError
	require.ErrorAs(t, err, &reqErr)
	assert.Zero(t, reqErr.StatusCode)
	assert.NotNil(t, reqErr.Err)
}

func TestBuildPayload_Shapes(t *testing.T) {
	req := BuildKeywordRequest("payload test", "model-x")

	decode := func(t *testing.T, shape voxtypes.PayloadShape) map[string]any {
		t.Helper()
		data, err := buildPayload(shape, req)
		require.NoError(t, err)
		out := map[string]any{}
		require.NoError(t, json.Unmarshal(data, &out))
		return out
	}

	t.Run("messages", func(t *testing.T) {
		body := decode(t, voxtypes.PayloadMessages)
		assert.Equal(t, "model-x", body["model"])
		assert.Equal(t, float64(150), body["max_tokens"])
		assert.NotContains(t, body, "temperature")
		messages := body["messages"].([]any)
		require.Len(t, messages, 1)
		assert.Equal(t, "user", messages[0].(map[string]any)["role"])
	})

	t.Run("contents", func(t *testing.T) {
		body := decode(t, voxtypes.PayloadContents)
		assert.NotContains(t, body, "model")
		contents := body["contents"].([]any)
		require.Len(t, contents, 1)
		parts := contents[0].(map[string]any)["parts"].([]any)
		assert.Contains(t, parts[0].(map[string]any)["text"], "payload test")
		config := body["generationConfig"].(map[string]any)
		assert.Equal(t, 0.3, config["temperature"])
		assert.Equal(t, float64(150), config["maxOutputTokens"])
	})

	t.Run("none", func(t *testing.T) {
		_, err := buildPayload(voxtypes.PayloadNone, req)
		assert.Error(t, err)
	})
}

func TestNewProviderClient_Dispatch(t *testing.T) {
	tests := []struct {
		provider voxtypes.ProviderID
		expected any
	}{
		{voxtypes.ProviderOpenAI, &OpenAIClient{}},
		{voxtypes.ProviderAnthropic, &AnthropicClient{}},
		{voxtypes.ProviderGemini, &GeminiClient{}},
		{voxtypes.ProviderMistral, &HTTPProviderClient{}},
		{voxtypes.ProviderAzure, &HTTPProviderClient{}},
		{voxtypes.ProviderOllama, &HTTPProviderClient{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			client, err := NewProviderClient(ProviderClientConfig{Descriptor: testDescriptor(t, tt.provider), APIKey: "k"})
			require.NoError(t, err)
			assert.IsType(t, tt.expected, client)
			assert.Equal(t, string(tt.provider), client.GetProviderName())
		})
	}

	_, err := NewProviderClient(ProviderClientConfig{Descriptor: testDescriptor(t, voxtypes.ProviderLocal)})
	assert.ErrorIs(t, err, voxtypes.ErrUnsupportedProvider)
}

func TestTruncateBody(t *testing.T) {
	long := make([]byte, maxErrorBodyLength+100)
	for i := range long {
		long[i] = 'x'
	}
	truncated := truncateBody(string(long))
	assert.Len(t, truncated, maxErrorBodyLength+3)
	assert.Equal(t, "short", truncateBody("  short \n"))
}
