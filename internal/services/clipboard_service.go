package services

import (
	"fmt"
	"strings"
	"sync"

	"voxsearch/internal/logger"
)

// ClipboardService copies the final search query to the system clipboard.
// When the platform has no clipboard the text is kept in memory instead.
type ClipboardService struct {
	initialized bool
	available   bool
	mu          sync.Mutex
	lastCopied  string
}

// NewClipboardService creates a new ClipboardService instance.
func NewClipboardService() *ClipboardService {
	return &ClipboardService{initialized: false}
}

// Name returns the service name "clipboard" for registration.
func (c *ClipboardService) Name() string {
	return "clipboard"
}

// Initialize checks for a system clipboard. An unavailable clipboard is not an error.
func (c *ClipboardService) Initialize() error {
	c.available = clipboardAvailable
	if c.available {
		if err := initClipboard(); err != nil {
			logger.Debug("System clipboard unavailable", "error", err)
			c.available = false
		}
	}
	c.initialized = true
	return nil
}

// Available reports whether Copy reaches the system clipboard.
func (c *ClipboardService) Available() bool {
	return c.available
}

// Copy stores text and writes it to the system clipboard when available.
// It returns false when only the in-memory fallback was updated.
func (c *ClipboardService) Copy(text string) (bool, error) {
	if !c.initialized {
		return false, fmt.Errorf("clipboard service not initialized")
	}
	if strings.TrimSpace(text) == "" {
		return false, fmt.Errorf("nothing to copy")
	}

	c.mu.Lock()
	c.lastCopied = text
	c.mu.Unlock()

	if !c.available {
		return false, nil
	}
	if err := writeToClipboard(text); err != nil {
		return false, fmt.Errorf("failed to write clipboard: %w", err)
	}
	logger.Debug("Copied query to clipboard", "chars", len(text))
	return true, nil
}

// LastCopied returns the most recent text passed to Copy.
func (c *ClipboardService) LastCopied() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCopied
}
