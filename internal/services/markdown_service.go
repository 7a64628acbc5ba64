package services

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"

	"voxsearch/internal/logger"
	"voxsearch/pkg/voxtypes"
)

// defaultWordWrap is the markdown renderer's default line width.
const defaultWordWrap = 80

// markdownStyles are the Glamour standard styles plus "auto".
var markdownStyles = []string{
	"auto",  // Auto-detect based on terminal
	"dark",  // Dark theme
	"light", // Light theme
	"notty", // Plain text (no colors)
	"ascii", // ASCII-only styling
}

// IsMarkdownStyle reports whether style is empty or one of the known styles.
func IsMarkdownStyle(style string) bool {
	return style == "" || slices.Contains(markdownStyles, style)
}

// MarkdownService renders search results as terminal markdown using Glamour.
type MarkdownService struct {
	initialized bool
	style       string
	wordWrap    int
	renderer    *glamour.TermRenderer
}

// NewMarkdownService creates a new MarkdownService instance.
// An empty style selects auto-detection.
func NewMarkdownService(style string) *MarkdownService {
	return &MarkdownService{
		initialized: false,
		style:       style,
		wordWrap:    defaultWordWrap,
	}
}

// Name returns the service name "markdown" for registration.
func (m *MarkdownService) Name() string {
	return "markdown"
}

// Initialize creates the terminal renderer.
func (m *MarkdownService) Initialize() error {
	if !IsMarkdownStyle(m.style) {
		return fmt.Errorf("unknown markdown style %q (available: %s)", m.style, strings.Join(m.GetAvailableStyles(), ", "))
	}

	renderer, err := newTermRenderer(m.style, m.wordWrap)
	if err != nil {
		return err
	}

	m.renderer = renderer
	m.initialized = true

	logger.Debug("MarkdownService initialized successfully", "style", m.styleName())
	return nil
}

// Render renders markdown content to ANSI terminal output.
func (m *MarkdownService) Render(markdown string) (string, error) {
	if !m.initialized {
		return "", fmt.Errorf("markdown service not initialized")
	}

	if strings.TrimSpace(markdown) == "" {
		return "", fmt.Errorf("markdown content cannot be empty")
	}

	rendered, err := m.renderer.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}

	return rendered, nil
}

// SetWordWrap rebuilds the renderer with a new line width.
func (m *MarkdownService) SetWordWrap(width int) error {
	if !m.initialized {
		return fmt.Errorf("markdown service not initialized")
	}

	if width <= 0 {
		return fmt.Errorf("word wrap width must be positive, got %d", width)
	}

	renderer, err := newTermRenderer(m.style, width)
	if err != nil {
		return err
	}

	m.renderer = renderer
	m.wordWrap = width
	logger.Debug("MarkdownService word wrap updated", "width", width)
	return nil
}

// RenderSearchResults renders the query and one link per engine.
func (m *MarkdownService) RenderSearchResults(query string, results []voxtypes.SearchResult) (string, error) {
	return m.Render(SearchResultsMarkdown(query, results))
}

func (m *MarkdownService) styleName() string {
	if m.style == "" {
		return "auto"
	}
	return m.style
}

// GetAvailableStyles returns the Glamour styles accepted by NewMarkdownService.
func (m *MarkdownService) GetAvailableStyles() []string {
	return slices.Clone(markdownStyles)
}

func newTermRenderer(style string, width int) (*glamour.TermRenderer, error) {
	styleOption := glamour.WithAutoStyle()
	if style != "" && style != "auto" {
		styleOption = glamour.WithStandardStyle(style)
	}

	renderer, err := glamour.NewTermRenderer(styleOption, glamour.WithWordWrap(width))
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return renderer, nil
}

// SearchResultsMarkdown formats results as a markdown document.
func SearchResultsMarkdown(query string, results []voxtypes.SearchResult) string {
	var b strings.Builder

	b.WriteString("## Search\n\n")
	if query == "" {
		b.WriteString("_No keywords extracted._\n")
		return b.String()
	}

	fmt.Fprintf(&b, "`%s`\n\n", strings.ReplaceAll(query, "`", "'"))
	for _, result := range results {
		fmt.Fprintf(&b, "- **%s**: <%s>\n", result.Engine, result.URL)
	}
	return b.String()
}
