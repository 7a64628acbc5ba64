package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_LevelPrecedence(t *testing.T) {
	t.Setenv(LogLevelEnv, "error")

	require.NoError(t, Configure("debug", "", false))
	assert.Equal(t, log.DebugLevel, Logger.GetLevel())

	require.NoError(t, Configure("", "", false))
	assert.Equal(t, log.ErrorLevel, Logger.GetLevel())

	t.Setenv(LogLevelEnv, "")
	require.NoError(t, Configure("", "", false))
	assert.Equal(t, log.InfoLevel, Logger.GetLevel())

	require.NoError(t, Configure("debug", "", true))
	assert.Equal(t, log.InfoLevel, Logger.GetLevel())
}

func TestConfigure_LogFile(t *testing.T) {
	require.NoError(t, Configure("info", filepath.Join(t.TempDir(), "voxsearch.log"), false))
	assert.Error(t, Configure("info", filepath.Join(t.TempDir(), "missing", "voxsearch.log"), false))
}

func TestFallbackAndStyledLogger(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure("info", "", false))
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })

	Fallback("req-1", "groq", errors.New("status 503"))
	assert.Contains(t, buf.String(), "Falling back to local extraction")
	assert.Contains(t, buf.String(), "req-1")

	buf.Reset()
	NewStyledLogger("Listen").Error("Search failed", "query", "tides")
	assert.Contains(t, buf.String(), "Listen")
	assert.Contains(t, buf.String(), "tides")

	buf.Reset()
	ProviderRequest("req-2", "groq", "llama", "https://api.groq.com")
	assert.Empty(t, buf.String())
}
