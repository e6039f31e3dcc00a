// Package text holds the lexical helpers shared by the security screen,
// the retriever, the confidence scorer and the question tracker. They are
// deliberately simple: the system approximates relevance with token
// overlap rather than embeddings.
package text

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// Tokenize lowercases the input and splits it on whitespace.
func Tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

// TokenSet returns the distinct lowercase tokens of s.
func TokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range Tokenize(s) {
		set[tok] = struct{}{}
	}
	return set
}

// Normalize lowercases, strips punctuation and collapses whitespace.
// Two questions that normalize identically are treated as duplicates.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
		// Punctuation and symbols are dropped entirely.
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// ContentHash returns the hex sha256 digest of the normalized text. It is
// the per-business dedup key for unanswered questions.
func ContentHash(s string) string {
	sum := sha256.Sum256([]byte(Normalize(s)))
	return hex.EncodeToString(sum[:])
}

// JaccardSimilarity is the symmetric token-set similarity of a and b:
// |intersection| / |union|. It is 0 when either side has no tokens and 1
// when the token sets are identical.
func JaccardSimilarity(a, b string) float64 {
	setA := TokenSet(a)
	setB := TokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "day": {}, "get": {}, "has": {},
	"him": {}, "his": {}, "how": {}, "its": {}, "may": {}, "new": {},
	"now": {}, "old": {}, "see": {}, "two": {}, "way": {}, "who": {},
	"did": {}, "does": {}, "what": {}, "when": {}, "where": {}, "which": {},
	"with": {}, "your": {}, "this": {}, "that": {}, "have": {}, "from": {},
	"they": {}, "will": {}, "would": {}, "there": {}, "their": {}, "about": {},
	"could": {}, "should": {},
}

// Keywords extracts the meaningful tokens of s: longer than three
// characters with stop words removed. Punctuation is stripped from token
// edges so "prices?" and "prices" extract identically.
func Keywords(s string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, tok := range Tokenize(s) {
		tok = strings.TrimFunc(tok, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len(tok) <= 3 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// SentenceCount counts sentence delimiters (. ! ?) with non-empty
// preceding text.
func SentenceCount(s string) int {
	count := 0
	pending := false
	for _, r := range s {
		switch r {
		case '.', '!', '?':
			if pending {
				count++
				pending = false
			}
		default:
			if !unicode.IsSpace(r) {
				pending = true
			}
		}
	}
	return count
}

// WordCount returns the number of whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
