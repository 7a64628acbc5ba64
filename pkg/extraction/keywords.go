// Package extraction turns free text into compact search engine queries without any network access.
// It preserves quoted phrases, ranks the remaining words by frequency, and rewrites the result
// according to the detected search intent. Every function is pure and safe for concurrent use.
package extraction

import (
	"regexp"
	"sort"
	"strings"

	"voxsearch/pkg/voxtypes"
)

const (
	// maxQuotedPhrases caps how many quoted phrases are carried into the query.
	maxQuotedPhrases = 3
	// minTokenLength is the shortest token kept as a keyword.
	minTokenLength = 3
	booleanJoiner  = " AND "
)

var (
	quotePattern      = regexp.MustCompile(`"([^"]+)"`)
	nonWordPattern    = regexp.MustCompile(`[^\w\s]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// TermFrequency is a candidate keyword and the number of times it occurred.
type TermFrequency struct {
	Term  string
	Count int
}

// Analysis is the full trace of one extraction.
type Analysis struct {
	Intent   voxtypes.Intent
	Quotes   []string        // every quoted phrase, in source order
	Terms    []TermFrequency // ranked candidates after stop-word filtering
	Keywords []string        // items that made it into the query
	Query    string          // final query after boolean joining and intent enhancement
}

// ExtractSearchKeywords converts text into a search query using the default
// settings: eight keywords, quoted phrases preserved, and boolean operators
// only for comparison queries. Empty input yields an empty string.
func ExtractSearchKeywords(text string) string {
	opts := voxtypes.DefaultExtractionOptions()
	opts.IncludeBoolean = false
	return Analyze(text, opts).Query
}

// ExtractSearchKeywordsWithOptions is ExtractSearchKeywords with caller supplied options.
// Boolean mode is forced on for comparison queries.
func ExtractSearchKeywordsWithOptions(text string, opts voxtypes.ExtractionOptions) string {
	return Analyze(text, opts).Query
}

// Analyze runs the whole pipeline and reports every intermediate result.
func Analyze(text string, opts voxtypes.ExtractionOptions) Analysis {
	intent := DetectIntent(text)
	if intent.Kind == voxtypes.IntentComparison {
		opts.IncludeBoolean = true
	}

	analysis := selectKeywords(text, opts)
	analysis.Intent = intent
	analysis.Query = EnhanceKeywords(joinKeywords(analysis.Keywords, opts.IncludeBoolean), intent)
	return analysis
}

// ExtractKeywords converts text into a keyword string without intent detection.
//
// Quoted phrases are pulled out first so their words are not counted twice,
// the rest is normalized and ranked by frequency, up to three quoted phrases
// are put in front, and the list is cut to opts.MaxKeywords. With boolean
// mode on, the first two items are joined with AND.
//
// Examples:
//
//	ExtractKeywords(`find "machine learning" papers`, defaults) -> `"machine learning" AND find papers`
//	ExtractKeywords("the and of", defaults)                     -> ""
func ExtractKeywords(text string, opts voxtypes.ExtractionOptions) string {
	return joinKeywords(selectKeywords(text, opts).Keywords, opts.IncludeBoolean)
}

func selectKeywords(text string, opts voxtypes.ExtractionOptions) Analysis {
	if strings.TrimSpace(text) == "" {
		return Analysis{}
	}

	maxKeywords := opts.MaxKeywords
	if maxKeywords <= 0 {
		maxKeywords = voxtypes.DefaultMaxKeywords
	}

	var quotes []string
	working := text
	if opts.IncludeQuotes {
		for _, match := range quotePattern.FindAllStringSubmatch(text, -1) {
			quotes = append(quotes, match[1])
			working = strings.Replace(working, match[0], "", 1)
		}
	}

	terms := rankTerms(normalize(working))

	keywords := make([]string, 0, maxKeywords)
	if opts.IncludeQuotes {
		for i := 0; i < len(quotes) && i < maxQuotedPhrases; i++ {
			keywords = append(keywords, `"`+quotes[i]+`"`)
		}
	}
	for _, term := range terms {
		keywords = append(keywords, term.Term)
	}
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}

	return Analysis{
		Quotes:   quotes,
		Terms:    terms,
		Keywords: keywords,
	}
}

// normalize lower-cases text, turns punctuation into spaces and collapses whitespace.
func normalize(text string) string {
	cleaned := nonWordPattern.ReplaceAllString(strings.ToLower(text), " ")
	cleaned = whitespacePattern.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// rankTerms counts surviving tokens and orders them by descending frequency.
// Equal counts keep first-seen order.
func rankTerms(cleaned string) []TermFrequency {
	counts := make(map[string]int)
	var order []string
	for _, word := range strings.Split(cleaned, " ") {
		if len(word) < minTokenLength || IsStopword(word) {
			continue
		}
		if _, seen := counts[word]; !seen {
			order = append(order, word)
		}
		counts[word]++
	}

	terms := make([]TermFrequency, 0, len(order))
	for _, word := range order {
		terms = append(terms, TermFrequency{Term: word, Count: counts[word]})
	}
	sort.SliceStable(terms, func(i, j int) bool {
		return terms[i].Count > terms[j].Count
	})
	return terms
}

// joinKeywords joins the first two items with AND. Exactly two items yield
// "a AND b" with no trailing space.
func joinKeywords(keywords []string, includeBoolean bool) string {
	if includeBoolean && len(keywords) >= 2 {
		joined := keywords[0] + booleanJoiner + keywords[1]
		if rest := keywords[2:]; len(rest) > 0 {
			joined += " " + strings.Join(rest, " ")
		}
		return joined
	}
	return strings.Join(keywords, " ")
}
