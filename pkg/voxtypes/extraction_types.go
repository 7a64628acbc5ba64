package voxtypes

// DefaultMaxKeywords is the number of keyword items kept by default.
const DefaultMaxKeywords = 8

// ExtractionOptions tunes the local keyword extractor.
type ExtractionOptions struct {
	MaxKeywords    int  `yaml:"max_keywords" json:"maxKeywords" mapstructure:"max_keywords"`
	IncludeQuotes  bool `yaml:"include_quotes" json:"includeQuotes" mapstructure:"include_quotes"`
	IncludeBoolean bool `yaml:"include_boolean" json:"includeBoolean" mapstructure:"include_boolean"`
}

// DefaultExtractionOptions returns eight keywords with quotes and boolean operators enabled.
func DefaultExtractionOptions() ExtractionOptions {
	return ExtractionOptions{
		MaxKeywords:    DefaultMaxKeywords,
		IncludeQuotes:  true,
		IncludeBoolean: true,
	}
}

// IntentKind is the coarse rhetorical form of a query.
type IntentKind string

// Intent kinds, listed in detection precedence order.
const (
	IntentQuestion   IntentKind = "question"
	IntentDefinition IntentKind = "definition"
	IntentComparison IntentKind = "comparison"
	IntentHowTo      IntentKind = "howto"
	IntentGeneral    IntentKind = "general"
)

// HowToModifier is appended to how-to queries.
const HowToModifier = "tutorial"

// Intent is the detected search intent. Modifier is only set for IntentHowTo.
type Intent struct {
	Kind     IntentKind `json:"intent"`
	Modifier string     `json:"modifier,omitempty"`
}
