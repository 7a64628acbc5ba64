package extraction

import (
	"regexp"
	"strings"

	"voxsearch/pkg/voxtypes"
)

var (
	questionPattern   = regexp.MustCompile(`^(who|what|when|where|why|how|is|are|can|do|does|did|will|should)[\s\w]+\?*$`)
	definitionPattern = regexp.MustCompile(`^(what is|what are|define|meaning of|definition of)[\s\w]+$`)
	comparisonPattern = regexp.MustCompile(`\b(vs|versus|compared to|difference between|better than)\b`)
	howToPattern      = regexp.MustCompile(`^(how to|steps to|guide for|tutorial on)[\s\w]+$`)
)

// DetectIntent classifies the raw input text.
//
// Rules are evaluated in order: question, definition, comparison, how-to,
// general. The question rule only claims text whose lead is a bare
// interrogative; text that opens with a definition or how-to lead phrase
// ("what is", "how to", ...) is left to the more specific rule.
//
// Examples:
//
//	DetectIntent("who invented radio")         -> question
//	DetectIntent("what is osmosis")            -> definition
//	DetectIntent("python vs java performance") -> comparison
//	DetectIntent("how to bake bread")          -> howto (modifier "tutorial")
//	DetectIntent("best pizza nearby")          -> general
func DetectIntent(text string) voxtypes.Intent {
	lower := strings.ToLower(text)

	isDefinition := definitionPattern.MatchString(lower)
	isHowTo := howToPattern.MatchString(lower)

	switch {
	case questionPattern.MatchString(lower) && !isDefinition && !isHowTo:
		return voxtypes.Intent{Kind: voxtypes.IntentQuestion}
	case isDefinition:
		return voxtypes.Intent{Kind: voxtypes.IntentDefinition}
	case comparisonPattern.MatchString(lower):
		return voxtypes.Intent{Kind: voxtypes.IntentComparison}
	case isHowTo:
		return voxtypes.Intent{Kind: voxtypes.IntentHowTo, Modifier: voxtypes.HowToModifier}
	default:
		return voxtypes.Intent{Kind: voxtypes.IntentGeneral}
	}
}

// EnhanceKeywords rewrites an extracted query according to its intent.
// An empty query stays empty regardless of intent.
func EnhanceKeywords(keywords string, intent voxtypes.Intent) string {
	if keywords == "" {
		return ""
	}

	switch intent.Kind {
	case voxtypes.IntentDefinition:
		return "define " + keywords
	case voxtypes.IntentComparison:
		return keywords + " comparison"
	case voxtypes.IntentHowTo:
		return "how to " + keywords + " " + intent.Modifier
	default:
		return keywords
	}
}
