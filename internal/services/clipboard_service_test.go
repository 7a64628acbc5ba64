package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClipboardService_NotInitialized(t *testing.T) {
	service := NewClipboardService()
	assert.Equal(t, "clipboard", service.Name())

	copied, err := service.Copy("x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clipboard service not initialized")
	assert.False(t, copied)
	assert.Empty(t, service.LastCopied())
}

func TestClipboardService_EmptyText(t *testing.T) {
	service := NewClipboardService()
	require.NoError(t, service.Initialize())

	for _, text := range []string{"", "  ", "\n\t"} {
		copied, err := service.Copy(text)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nothing to copy")
		assert.False(t, copied)
	}
	assert.Empty(t, service.LastCopied())
}

func TestClipboardService_InMemoryFallback(t *testing.T) {
	service := NewClipboardService()
	require.NoError(t, service.Initialize())
	service.available = false

	copied, err := service.Copy("rust ownership")
	require.NoError(t, err)
	assert.False(t, copied)
	assert.Equal(t, "rust ownership", service.LastCopied())

	copied, err = service.Copy("define osmosis")
	require.NoError(t, err)
	assert.False(t, copied)
	assert.Equal(t, "define osmosis", service.LastCopied())
}

func TestClipboardService_SystemClipboard(t *testing.T) {
	service := NewClipboardService()
	require.NoError(t, service.Initialize())
	if !service.Available() {
		t.Skip("no system clipboard on this platform")
	}

	copied, err := service.Copy("tide tables")
	require.NoError(t, err)
	assert.True(t, copied)
	assert.Equal(t, "tide tables", service.LastCopied())
}
