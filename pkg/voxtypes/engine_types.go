package voxtypes

import "time"

// SearchCategory groups search engines in the selector.
type SearchCategory string

// Engine categories.
const (
	CategoryAll       SearchCategory = "all"
	CategoryGeneral   SearchCategory = "general"
	CategoryPrivacy   SearchCategory = "privacy"
	CategoryAcademic  SearchCategory = "academic"
	CategoryDeveloper SearchCategory = "developer"
	CategorySocial    SearchCategory = "social"
	CategoryMedia     SearchCategory = "media"
	CategoryNews      SearchCategory = "news"
)

// SearchEngine is a static catalog row for one search engine.
// URLTemplate contains a single "{query}" placeholder.
type SearchEngine struct {
	ID          string         `yaml:"id" json:"id"`
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description" json:"description"`
	Category    SearchCategory `yaml:"category" json:"category"`
	URLTemplate string         `yaml:"url_template" json:"url_template"`
	IsDefault   bool           `yaml:"is_default,omitempty" json:"is_default,omitempty"`
}

// EngineCatalogFile is the structure of the embedded engine catalog YAML file.
type EngineCatalogFile struct {
	Engines []SearchEngine `yaml:"engines"`
}

// SearchResult is one engine's search URL for an extracted query.
type SearchResult struct {
	Engine    string    `json:"engine"`
	URL       string    `json:"url"`
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
}
