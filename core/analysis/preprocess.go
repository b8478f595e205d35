package analysis

import (
	"regexp"
	"strings"
)

// Process-wide read-only language resources. Initialized once, safe for
// concurrent use; no task mutates them.
var (
	nonAlphaNumRe  = regexp.MustCompile(`[^a-z0-9\s]`)
	sentenceEndRe  = regexp.MustCompile(`[.!?]+`)
	stopWords      = makeStopWords()
	irregularNouns = map[string]string{
		"children": "child",
		"feet":     "foot",
		"geese":    "goose",
		"men":      "man",
		"mice":     "mouse",
		"people":   "person",
		"teeth":    "tooth",
		"women":    "woman",
		"analyses": "analysis",
		"criteria": "criterion",
		"data":     "data",
		"theses":   "thesis",
	}
)

// Tokenize lowercases the text, strips every character outside [a-z0-9\s] and
// splits on whitespace. It keeps stop words; use Preprocess for the filtered,
// lemmatized stream.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	text = nonAlphaNumRe.ReplaceAllString(text, "")
	return strings.Fields(text)
}

// Preprocess normalizes raw text into the token sequence every downstream
// analyzer consumes: lowercase, strip non-alphanumerics, tokenize, drop stop
// words, lemmatize. Pure and deterministic; empty input yields no tokens.
func Preprocess(text string) []string {
	tokens := Tokenize(text)
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, stop := stopWords[tok]; stop {
			continue
		}
		out = append(out, Lemmatize(tok))
	}
	return out
}

// Lemmatize reduces a token to its dictionary base form. Rule-based: a table
// of irregular nouns plus regular plural suffix stripping, mirroring the noun
// behavior of a WordNet-style lemmatizer.
func Lemmatize(word string) string {
	if base, ok := irregularNouns[word]; ok {
		return base
	}
	switch {
	case strings.HasSuffix(word, "ies") && len(word) > 4:
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "sses"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "xes"), strings.HasSuffix(word, "zes"),
		strings.HasSuffix(word, "ches"), strings.HasSuffix(word, "shes"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "ss"), strings.HasSuffix(word, "us"), strings.HasSuffix(word, "is"):
		return word
	case strings.HasSuffix(word, "s") && len(word) > 3:
		return word[:len(word)-1]
	}
	return word
}

// SplitSentences splits text on terminal punctuation. Empty fragments are
// dropped; a text with no terminator is one sentence.
func SplitSentences(text string) []string {
	parts := sentenceEndRe.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

// IsStopWord reports whether the (lowercased) token is in the stop list.
func IsStopWord(tok string) bool {
	_, ok := stopWords[tok]
	return ok
}

// makeStopWords builds the English stop list. Terms are stored in their
// post-Tokenize shape, so contractions appear without apostrophes.
func makeStopWords() map[string]struct{} {
	words := []string{
		"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you",
		"youre", "youve", "youll", "youd", "your", "yours", "yourself",
		"yourselves", "he", "him", "his", "himself", "she", "shes", "her",
		"hers", "herself", "it", "its", "itself", "they", "them", "their",
		"theirs", "themselves", "what", "which", "who", "whom", "this", "that",
		"thatll", "these", "those", "am", "is", "are", "was", "were", "be",
		"been", "being", "have", "has", "had", "having", "do", "does", "did",
		"doing", "a", "an", "the", "and", "but", "if", "or", "because", "as",
		"until", "while", "of", "at", "by", "for", "with", "about", "against",
		"between", "into", "through", "during", "before", "after", "above",
		"below", "to", "from", "up", "down", "in", "out", "on", "off", "over",
		"under", "again", "further", "then", "once", "here", "there", "when",
		"where", "why", "how", "all", "any", "both", "each", "few", "more",
		"most", "other", "some", "such", "no", "nor", "not", "only", "own",
		"same", "so", "than", "too", "very", "s", "t", "can", "will", "just",
		"don", "dont", "should", "shouldve", "now", "d", "ll", "m", "o", "re",
		"ve", "y", "ain", "aren", "arent", "couldn", "couldnt", "didn",
		"didnt", "doesn", "doesnt", "hadn", "hadnt", "hasn", "hasnt", "haven",
		"havent", "isn", "isnt", "ma", "mightn", "mightnt", "mustn", "mustnt",
		"needn", "neednt", "shan", "shant", "shouldn", "shouldnt", "wasn",
		"wasnt", "weren", "werent", "won", "wont", "wouldn", "wouldnt",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
