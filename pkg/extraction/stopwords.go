package extraction

// stopwords are dropped before frequency analysis. The set covers English
// function words, the fragments left behind when contractions lose their
// apostrophe, the contractions themselves, and every single letter.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {}, "is": {}, "are": {}, "was": {},
	"were": {}, "be": {}, "been": {}, "being": {}, "in": {}, "on": {}, "at": {}, "to": {}, "for": {},
	"with": {}, "by": {}, "about": {}, "against": {}, "between": {}, "into": {}, "through": {},
	"during": {}, "before": {}, "after": {}, "above": {}, "below": {}, "from": {}, "up": {},
	"down": {}, "of": {}, "off": {}, "over": {}, "under": {}, "again": {}, "further": {}, "then": {},
	"once": {}, "here": {}, "there": {}, "when": {}, "where": {}, "why": {}, "how": {}, "all": {},
	"any": {}, "both": {}, "each": {}, "few": {}, "more": {}, "most": {}, "other": {}, "some": {},
	"such": {}, "no": {}, "nor": {}, "not": {}, "only": {}, "own": {}, "same": {}, "so": {},
	"than": {}, "too": {}, "very": {}, "s": {}, "t": {}, "can": {}, "will": {}, "just": {}, "don": {},
	"should": {}, "now": {}, "d": {}, "ll": {}, "m": {}, "o": {}, "re": {}, "ve": {}, "y": {},
	"ain": {}, "aren": {}, "couldn": {}, "didn": {}, "doesn": {}, "hadn": {}, "hasn": {}, "haven": {},
	"isn": {}, "ma": {}, "mightn": {}, "mustn": {}, "needn": {}, "shan": {}, "shouldn": {},
	"wasn": {}, "weren": {}, "won": {}, "wouldn": {}, "i": {}, "me": {}, "my": {}, "myself": {},
	"we": {}, "our": {}, "ours": {}, "ourselves": {}, "you": {}, "your": {}, "yours": {},
	"yourself": {}, "yourselves": {}, "he": {}, "him": {}, "his": {}, "himself": {}, "she": {},
	"her": {}, "hers": {}, "herself": {}, "it": {}, "its": {}, "itself": {}, "they": {}, "them": {},
	"their": {}, "theirs": {}, "themselves": {}, "what": {}, "which": {}, "who": {}, "whom": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "am": {}, "have": {}, "has": {}, "had": {},
	"having": {}, "do": {}, "does": {}, "did": {}, "doing": {}, "would": {}, "could": {}, "ought": {},
	"i'm": {}, "you're": {}, "he's": {}, "she's": {}, "it's": {}, "we're": {}, "they're": {},
	"i've": {}, "you've": {}, "we've": {}, "they've": {}, "i'd": {}, "you'd": {}, "he'd": {},
	"she'd": {}, "we'd": {}, "they'd": {}, "i'll": {}, "you'll": {}, "he'll": {}, "she'll": {},
	"we'll": {}, "they'll": {}, "isn't": {}, "aren't": {}, "wasn't": {}, "weren't": {}, "hasn't": {},
	"haven't": {}, "hadn't": {}, "doesn't": {}, "don't": {}, "didn't": {}, "won't": {},
	"wouldn't": {}, "shan't": {}, "shouldn't": {}, "can't": {}, "cannot": {}, "couldn't": {},
	"mustn't": {}, "let's": {}, "that's": {}, "who's": {}, "what's": {}, "here's": {}, "there's": {},
	"when's": {}, "where's": {}, "why's": {}, "how's": {}, "b": {}, "c": {}, "e": {}, "f": {},
	"g": {}, "h": {}, "j": {}, "k": {}, "l": {}, "n": {}, "p": {}, "q": {}, "r": {}, "u": {}, "v": {},
	"w": {}, "x": {}, "z": {},
}

// IsStopword reports whether word is filtered out of keyword candidates.
// The lookup is case-sensitive; callers pass lower-cased tokens.
func IsStopword(word string) bool {
	_, ok := stopwords[word]
	return ok
}
