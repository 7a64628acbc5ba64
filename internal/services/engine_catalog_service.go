package services

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"voxsearch/internal/data/embedded"
	"voxsearch/internal/logger"
	"voxsearch/pkg/voxtypes"
)

// queryPlaceholder is replaced with the encoded query in engine URL templates.
const queryPlaceholder = "{query}"

// EngineCatalogService exposes the embedded search engine catalog.
type EngineCatalogService struct {
	initialized bool
	once        sync.Once
	loadErr     error
	engines     []voxtypes.SearchEngine
	byID        map[string]int
}

// NewEngineCatalogService creates a new EngineCatalogService instance.
func NewEngineCatalogService() *EngineCatalogService {
	return &EngineCatalogService{}
}

// Name returns the service name "engine_catalog" for registration.
func (e *EngineCatalogService) Name() string {
	return "engine_catalog"
}

// Initialize loads the embedded engine catalog.
func (e *EngineCatalogService) Initialize() error {
	e.once.Do(func() {
		e.engines, e.loadErr = parseEngineCatalog(embedded.EngineCatalogData)
		if e.loadErr != nil {
			return
		}
		e.byID = make(map[string]int, len(e.engines))
		for i, engine := range e.engines {
			e.byID[engine.ID] = i
		}
		logger.ServiceOperation("engine_catalog", "initialize", "engines", len(e.engines))
	})
	if e.loadErr != nil {
		return e.loadErr
	}
	e.initialized = true
	return nil
}

// Engines returns every engine in catalog order.
func (e *EngineCatalogService) Engines() ([]voxtypes.SearchEngine, error) {
	return e.ByCategory(voxtypes.CategoryAll)
}

// ByCategory returns the engines of a category; CategoryAll returns every engine.
func (e *EngineCatalogService) ByCategory(category voxtypes.SearchCategory) ([]voxtypes.SearchEngine, error) {
	if !e.initialized {
		return nil, fmt.Errorf("engine catalog service not initialized")
	}

	var engines []voxtypes.SearchEngine
	for _, engine := range e.engines {
		if category == voxtypes.CategoryAll || engine.Category == category {
			engines = append(engines, engine)
		}
	}
	return engines, nil
}

// GetEngine returns an engine by id.
func (e *EngineCatalogService) GetEngine(id string) (voxtypes.SearchEngine, error) {
	if !e.initialized {
		return voxtypes.SearchEngine{}, fmt.Errorf("engine catalog service not initialized")
	}

	idx, ok := e.byID[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return voxtypes.SearchEngine{}, fmt.Errorf("unknown search engine %q", id)
	}
	return e.engines[idx], nil
}

// Default returns the engine flagged as default, or the first engine.
func (e *EngineCatalogService) Default() (voxtypes.SearchEngine, error) {
	if !e.initialized {
		return voxtypes.SearchEngine{}, fmt.Errorf("engine catalog service not initialized")
	}

	for _, engine := range e.engines {
		if engine.IsDefault {
			return engine, nil
		}
	}
	return e.engines[0], nil
}

// SearchURL builds the search URL of an engine for query.
func (e *EngineCatalogService) SearchURL(id string, query string) (string, error) {
	engine, err := e.GetEngine(id)
	if err != nil {
		return "", err
	}
	return BuildSearchURL(engine, query), nil
}

// BuildSearchURL substitutes the percent-encoded query into the engine's URL template.
// Spaces are encoded as %20 so every engine receives the same encoding.
func BuildSearchURL(engine voxtypes.SearchEngine, query string) string {
	return strings.ReplaceAll(engine.URLTemplate, queryPlaceholder, EncodeQueryComponent(query))
}

// componentUnescaper restores the characters encodeURIComponent leaves as is
// and writes spaces as %20.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeQueryComponent percent-encodes a query string component the way a
// browser's encodeURIComponent does.
func EncodeQueryComponent(query string) string {
	return componentUnescaper.Replace(url.QueryEscape(query))
}

func parseEngineCatalog(data []byte) ([]voxtypes.SearchEngine, error) {
	var file voxtypes.EngineCatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse engine catalog: %w", err)
	}
	if len(file.Engines) == 0 {
		return nil, fmt.Errorf("engine catalog is empty")
	}

	seen := make(map[string]bool, len(file.Engines))
	defaults := 0
	for _, engine := range file.Engines {
		if engine.ID == "" {
			return nil, fmt.Errorf("engine %q has empty ID field", engine.Name)
		}
		if seen[engine.ID] {
			return nil, fmt.Errorf("duplicate engine ID %q", engine.ID)
		}
		seen[engine.ID] = true
		if strings.Count(engine.URLTemplate, queryPlaceholder) != 1 {
			return nil, fmt.Errorf("engine %q URL template must contain %s exactly once", engine.ID, queryPlaceholder)
		}
		if engine.IsDefault {
			defaults++
		}
	}
	if defaults > 1 {
		return nil, fmt.Errorf("engine catalog has %d default engines", defaults)
	}
	return file.Engines, nil
}
