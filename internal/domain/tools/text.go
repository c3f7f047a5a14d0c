package tools

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "for": {}, "from": {}, "has": {}, "have": {},
	"he": {}, "her": {}, "his": {}, "i": {}, "in": {}, "is": {}, "it": {},
	"its": {}, "of": {}, "on": {}, "or": {}, "she": {}, "that": {},
	"the": {}, "their": {}, "they": {}, "this": {}, "to": {}, "was": {},
	"were": {}, "which": {}, "will": {}, "with": {}, "you": {}, "your": {},
}

// ExtractKeywords returns the most frequent non-stopword terms, longest
// streak first on ties via frequency ordering.
func ExtractKeywords(text string, limit int) []string {
	counts := make(map[string]int)
	order := make(map[string]int)
	idx := 0

	for _, field := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	}) {
		word := strings.Trim(field, "-")
		if len(word) < 3 {
			continue
		}
		if _, stop := stopwords[word]; stop {
			continue
		}
		if _, seen := counts[word]; !seen {
			order[word] = idx
			idx++
		}
		counts[word]++
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return order[words[i]] < order[words[j]]
	})

	if limit > 0 && len(words) > limit {
		words = words[:limit]
	}
	return words
}

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	urlPattern   = regexp.MustCompile(`https?://[^\s<>"]+`)
	// Consecutive capitalized words, e.g. "New York" or "Ada Lovelace".
	properPattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
)

// extractEntities pulls emails, URLs, and capitalized name runs from text.
// Sentence-initial words inevitably slip through; this is a heuristic, not
// NER.
func extractEntities(text string) []string {
	seen := make(map[string]struct{})
	var out []string

	add := func(values []string) {
		for _, v := range values {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}

	add(emailPattern.FindAllString(text, -1))
	add(urlPattern.FindAllString(text, -1))
	add(properPattern.FindAllString(text, -1))
	return out
}
