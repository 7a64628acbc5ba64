package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxsearch/pkg/extraction"
	"voxsearch/pkg/voxtypes"
)

// newTestKeywordService builds an initialized KeywordService whose providers all point at baseURL.
func newTestKeywordService(t *testing.T, baseURL string, timeout time.Duration) *KeywordService {
	t.Helper()
	baseURLs := map[voxtypes.ProviderID]string{}
	if baseURL != "" {
		for _, id := range voxtypes.AllProviders {
			baseURLs[id] = baseURL
		}
	}
	service := NewKeywordService(NewProviderCatalogService(), NewClientFactoryService(), KeywordServiceOptions{
		Timeout:  timeout,
		BaseURLs: baseURLs,
	})
	require.NoError(t, service.Initialize())
	return service
}

// countingServer replies with body and counts requests.
func countingServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestKeywordService_Name(t *testing.T) {
	assert.Equal(t, "keyword", NewKeywordService(nil, nil, KeywordServiceOptions{}).Name())
}

func TestKeywordService_InitializeRequiresDependencies(t *testing.T) {
	service := NewKeywordService(nil, nil, KeywordServiceOptions{})
	assert.Error(t, service.Initialize())
}

func TestKeywordService_NotInitialized(t *testing.T) {
	service := NewKeywordService(NewProviderCatalogService(), NewClientFactoryService(), KeywordServiceOptions{})

	_, err := service.ProcessVoiceInput(context.Background(), "hello", voxtypes.ProviderConfig{Provider: voxtypes.ProviderLocal})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keyword service not initialized")
}

func TestKeywordService_UnsupportedProvider(t *testing.T) {
	service := newTestKeywordService(t, "", 0)

	for _, key := range []string{"", "some-key"} {
		_, err := service.ProcessVoiceInput(context.Background(), "hello world", voxtypes.ProviderConfig{Provider: "watson", APIKey: key})
		assert.ErrorIs(t, err, voxtypes.ErrUnsupportedProvider)
	}
}

func TestKeywordService_LocalPaths(t *testing.T) {
	server, hits := countingServer(t, http.StatusOK, `{"choices":[{"message":{"content":"remote"}}]}`)
	service := newTestKeywordService(t, server.URL, 0)

	transcript := "what is photosynthesis in plants"
	expected := extraction.ExtractSearchKeywords(transcript)

	tests := []struct {
		name string
		cfg  voxtypes.ProviderConfig
	}{
		{name: "local provider", cfg: voxtypes.ProviderConfig{Provider: voxtypes.ProviderLocal, APIKey: "ignored"}},
		{name: "missing key", cfg: voxtypes.ProviderConfig{Provider: voxtypes.ProviderOpenAI}},
		{name: "ollama without key", cfg: voxtypes.ProviderConfig{Provider: voxtypes.ProviderOllama}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := service.Process(context.Background(), transcript, tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, expected, result.Keywords)
			assert.Equal(t, SourceLocal, result.Source)
			assert.NotEmpty(t, result.RequestID)
		})
	}

	assert.Equal(t, int32(0), hits.Load())
}

func TestKeywordService_EmptyTranscript(t *testing.T) {
	server, hits := countingServer(t, http.StatusOK, `{"choices":[{"message":{"content":"remote"}}]}`)
	service := newTestKeywordService(t, server.URL, 0)

	for _, transcript := range []string{"", "   \n\t"} {
		keywords, err := service.ProcessVoiceInput(context.Background(), transcript, voxtypes.ProviderConfig{Provider: voxtypes.ProviderMistral, APIKey: "k"})
		require.NoError(t, err)
		assert.Equal(t, "", keywords)
	}
	assert.Equal(t, int32(0), hits.Load())
}

func TestKeywordService_RemoteSuccess(t *testing.T) {
	models := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		models <- payload.Model
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"\"photosynthesis\" plants"}}]}`))
	}))
	t.Cleanup(server.Close)

	service := newTestKeywordService(t, server.URL, 0)

	result, err := service.Process(context.Background(), "uh what is photosynthesis in plants", voxtypes.ProviderConfig{
		Provider: voxtypes.ProviderMistral,
		APIKey:   "mistral-key",
	})
	require.NoError(t, err)
	assert.Equal(t, `"photosynthesis" plants`, result.Keywords)
	assert.Equal(t, SourceRemote, result.Source)
	assert.Equal(t, "mistral-tiny", result.Model)
	assert.Equal(t, "mistral-tiny", <-models)
	assert.NoError(t, result.RemoteErr)
}

func TestKeywordService_FallbackOnRemoteFailure(t *testing.T) {
	transcript := "compare python vs java performance"
	expected := extraction.ExtractSearchKeywords(transcript)

	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `{"error":"boom"}`,
			check: func(t *testing.T, err error) {
				var reqErr *voxtypes.RemoteRequestFailedError
				require.ErrorAs(t, err, &reqErr)
				assert.Equal(t, http.StatusInternalServerError, reqErr.StatusCode)
			},
		},
		{
			name:   "malformed body",
			status: http.StatusOK,
			body:   `{"unexpected":true}`,
			check: func(t *testing.T, err error) {
				var malformed *voxtypes.RemoteResponseMalformedError
				require.ErrorAs(t, err, &malformed)
			},
		},
		{
			name:   "empty text",
			status: http.StatusOK,
			body:   `{"choices":[{"message":{"content":""}}]}`,
			check: func(t *testing.T, err error) {
				var malformed *voxtypes.RemoteResponseMalformedError
				require.ErrorAs(t, err, &malformed)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, hits := countingServer(t, tt.status, tt.body)
			service := newTestKeywordService(t, server.URL, 0)
			cfg := voxtypes.ProviderConfig{Provider: voxtypes.ProviderGroq, APIKey: "groq-key", Model: "gemma-7b-it"}

			result, err := service.Process(context.Background(), transcript, cfg)
			require.NoError(t, err)
			assert.Equal(t, expected, result.Keywords)
			assert.Equal(t, SourceFallback, result.Source)
			tt.check(t, result.RemoteErr)
			assert.Equal(t, int32(1), hits.Load(), "exactly one request, no retry")

			keywords, err := service.ProcessVoiceInput(context.Background(), transcript, cfg)
			require.NoError(t, err)
			assert.Equal(t, expected, keywords)

			_, err = service.QueryProvider(context.Background(), transcript, cfg)
			tt.check(t, err)
		})
	}
}

func TestKeywordService_TimeoutFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(server.Close)

	service := newTestKeywordService(t, server.URL, 50*time.Millisecond)
	transcript := "how to bake sourdough bread"

	start := time.Now()
	result, err := service.Process(context.Background(), transcript, voxtypes.ProviderConfig{Provider: voxtypes.ProviderMistral, APIKey: "k"})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, SourceFallback, result.Source)
	assert.Equal(t, extraction.ExtractSearchKeywords(transcript), result.Keywords)

	var reqErr *voxtypes.RemoteRequestFailedError
	assert.ErrorAs(t, result.RemoteErr, &reqErr)
}

func TestKeywordService_QueryProviderNoRemote(t *testing.T) {
	service := newTestKeywordService(t, "", 0)

	_, err := service.QueryProvider(context.Background(), "hello", voxtypes.ProviderConfig{Provider: voxtypes.ProviderLocal})
	assert.ErrorIs(t, err, voxtypes.ErrNoRemote)

	_, err = service.QueryProvider(context.Background(), "hello", voxtypes.ProviderConfig{Provider: voxtypes.ProviderCohere})
	assert.ErrorIs(t, err, voxtypes.ErrNoRemote)

	_, err = service.QueryProvider(context.Background(), "hello", voxtypes.ProviderConfig{Provider: "nope", APIKey: "k"})
	assert.ErrorIs(t, err, voxtypes.ErrUnsupportedProvider)
}

func TestKeywordService_AzureWithoutEndpointFallsBack(t *testing.T) {
	service := newTestKeywordService(t, "", 0)
	transcript := "azure fallback check"

	result, err := service.Process(context.Background(), transcript, voxtypes.ProviderConfig{Provider: voxtypes.ProviderAzure, APIKey: "key-only"})
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, result.Source)
	assert.Equal(t, extraction.ExtractSearchKeywords(transcript), result.Keywords)
}

func TestKeywordService_ExtractionOptions(t *testing.T) {
	opts := voxtypes.ExtractionOptions{MaxKeywords: 2, IncludeQuotes: true, IncludeBoolean: false}
	service := NewKeywordService(NewProviderCatalogService(), NewClientFactoryService(), KeywordServiceOptions{Extraction: &opts})
	require.NoError(t, service.Initialize())

	transcript := "gardening tomatoes peppers cucumbers"
	keywords, err := service.ProcessVoiceInput(context.Background(), transcript, voxtypes.ProviderConfig{Provider: voxtypes.ProviderLocal})
	require.NoError(t, err)
	assert.Equal(t, extraction.ExtractSearchKeywordsWithOptions(transcript, opts), keywords)
}

func TestBuildKeywordRequest(t *testing.T) {
	req := BuildKeywordRequest("find rust tutorials", "gpt-4")

	assert.Equal(t, "gpt-4", req.Model)
	assert.Equal(t, "find rust tutorials", req.Transcript)
	assert.Equal(t, "You are a search keyword extraction specialist.", req.SystemPrompt)
	assert.Equal(t, 0.3, req.Temperature)
	assert.Equal(t, 150, req.MaxTokens)

	assert.Contains(t, req.Prompt, "search keyword extraction specialist")
	assert.Contains(t, req.Prompt, `User's input: "find rust tutorials"`)
	assert.Contains(t, req.Prompt, "Return ONLY the optimized search keywords")
	for i := 1; i <= 8; i++ {
		assert.Contains(t, req.Prompt, "\n"+string(rune('0'+i))+". ")
	}
}
