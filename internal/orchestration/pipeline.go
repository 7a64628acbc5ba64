// Package orchestration coordinates the voxsearch services to turn a
// transcript into a batch of search links.
package orchestration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"voxsearch/internal/logger"
	"voxsearch/internal/services"
	"voxsearch/pkg/voxtypes"
)

// Request is one transcript to search for.
type Request struct {
	Transcript string
	Provider   voxtypes.ProviderConfig
	// Engines are engine ids; empty selects the catalog default.
	Engines []string
}

// Outcome is the result of one Pipeline run.
type Outcome struct {
	RequestID string
	Query     string
	Provider  voxtypes.ProviderID
	Model     string
	Source    services.KeywordSource
	RemoteErr error
	// Results holds one entry per engine, all with the same timestamp. Nil when Query is empty.
	Results []voxtypes.SearchResult
}

// Pipeline runs keyword extraction and builds search URLs.
type Pipeline struct {
	keywords *services.KeywordService
	engines  *services.EngineCatalogService
	now      func() time.Time
}

// NewPipeline creates a Pipeline from initialized services.
func NewPipeline(keywords *services.KeywordService, engines *services.EngineCatalogService) *Pipeline {
	return &Pipeline{
		keywords: keywords,
		engines:  engines,
		now:      time.Now,
	}
}

// NewPipelineFromRegistry looks up the keyword and engine catalog services in the global registry.
func NewPipelineFromRegistry() (*Pipeline, error) {
	keywords, err := services.GetTypedService[*services.KeywordService]("keyword")
	if err != nil {
		return nil, fmt.Errorf("keyword service not available: %w", err)
	}
	engines, err := services.GetTypedService[*services.EngineCatalogService]("engine_catalog")
	if err != nil {
		return nil, fmt.Errorf("engine catalog service not available: %w", err)
	}
	return NewPipeline(keywords, engines), nil
}

// Run extracts keywords from the transcript and builds one search URL per engine.
// An empty transcript yields an empty Outcome and no error. The only keyword
// error that reaches the caller is an unsupported provider.
func (p *Pipeline) Run(ctx context.Context, req Request) (Outcome, error) {
	engines, err := p.resolveEngines(req.Engines)
	if err != nil {
		return Outcome{}, err
	}

	result, err := p.keywords.Process(ctx, req.Transcript, req.Provider)
	if err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{
		RequestID: result.RequestID,
		Query:     result.Keywords,
		Provider:  result.Provider,
		Model:     result.Model,
		Source:    result.Source,
		RemoteErr: result.RemoteErr,
	}
	if outcome.Query == "" {
		logger.Debug("No keywords extracted", "request_id", outcome.RequestID)
		return outcome, nil
	}

	timestamp := p.now()
	outcome.Results = make([]voxtypes.SearchResult, 0, len(engines))
	for _, engine := range engines {
		outcome.Results = append(outcome.Results, voxtypes.SearchResult{
			Engine:    engine.Name,
			URL:       services.BuildSearchURL(engine, outcome.Query),
			Query:     outcome.Query,
			Timestamp: timestamp,
		})
	}

	logger.Debug("Search links built", "request_id", outcome.RequestID, "query", outcome.Query, "engines", len(outcome.Results), "source", outcome.Source)
	return outcome, nil
}

// resolveEngines maps ids to catalog rows, dropping duplicates and keeping order.
func (p *Pipeline) resolveEngines(ids []string) ([]voxtypes.SearchEngine, error) {
	if len(ids) == 0 {
		engine, err := p.engines.Default()
		if err != nil {
			return nil, err
		}
		return []voxtypes.SearchEngine{engine}, nil
	}

	seen := make(map[string]bool, len(ids))
	engines := make([]voxtypes.SearchEngine, 0, len(ids))
	for _, id := range ids {
		engine, err := p.engines.GetEngine(id)
		if err != nil {
			return nil, err
		}
		if seen[engine.ID] {
			continue
		}
		seen[engine.ID] = true
		engines = append(engines, engine)
	}
	return engines, nil
}

// SplitEngineList parses a comma separated engine list such as "google, bing".
func SplitEngineList(list string) []string {
	var ids []string
	for _, id := range strings.Split(list, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
