// Package confidence turns retrieval quality, response shape and lexical
// overlap into a single [0,1] score that gates whether a generated
// answer is treated as authoritative.
package confidence

import (
	"strings"

	"github.com/helpmate-ai/cobalt/internal/core/model"
	"github.com/helpmate-ai/cobalt/internal/core/text"
)

type Scorer struct {
	weights model.ConfidenceWeights
}

func NewScorer(weights model.ConfidenceWeights) *Scorer {
	return &Scorer{weights: weights}
}

// Score evaluates one question/response pair against the retrieved
// context. semanticScore is an externally supplied similarity signal,
// clamped to [0,1]. The aggregate score is the weighted sum of the four
// breakdown components and isConfident compares it to threshold.
func (s *Scorer) Score(question, response string, candidates []model.ContextCandidate, semanticScore, threshold float64) model.ConfidenceResult {
	breakdown := model.ConfidenceBreakdown{
		Relevance:     s.relevance(question, response, candidates),
		Completeness:  s.completeness(question, response),
		SourceQuality: s.sourceQuality(candidates),
		SemanticMatch: text.Clamp01(semanticScore),
	}

	score := s.weights.Relevance*breakdown.Relevance +
		s.weights.Completeness*breakdown.Completeness +
		s.weights.SourceQuality*breakdown.SourceQuality +
		s.weights.SemanticMatch*breakdown.SemanticMatch

	result := model.ConfidenceResult{
		Score:       score,
		Threshold:   threshold,
		IsConfident: score >= threshold,
		Breakdown:   breakdown,
	}
	if !result.IsConfident {
		result.Recommendations = recommendations(breakdown)
	}
	return result
}

// relevance averages keyword coverage and raw word coverage of the
// question inside the response. Without any retrieved context the answer
// is ungrounded and relevance is pinned to 0.
func (s *Scorer) relevance(question, response string, candidates []model.ContextCandidate) float64 {
	if len(candidates) == 0 {
		return 0
	}

	respTokens := text.TokenSet(response)

	keywords := text.Keywords(question)
	keywordHits := 0
	for _, kw := range keywords {
		if containsToken(respTokens, response, kw) {
			keywordHits++
		}
	}
	keywordCoverage := 1.0
	if len(keywords) > 0 {
		keywordCoverage = float64(keywordHits) / float64(len(keywords))
	}

	words := text.Tokenize(question)
	wordHits := 0
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:'\"()")
		if w == "" {
			continue
		}
		if containsToken(respTokens, response, w) {
			wordHits++
		}
	}
	wordCoverage := 0.0
	if len(words) > 0 {
		wordCoverage = float64(wordHits) / float64(len(words))
	}

	return (keywordCoverage + wordCoverage) / 2
}

// completeness averages three shape signals: response length against a
// floor of max(50, 2x question length), question word echo, and sentence
// count relative to two sentences.
func (s *Scorer) completeness(question, response string) float64 {
	floor := 2 * len(question)
	if floor < 50 {
		floor = 50
	}
	lengthScore := text.Clamp01(float64(len(response)) / float64(floor))

	respTokens := text.TokenSet(response)
	words := text.Tokenize(question)
	hits := 0
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:'\"()")
		if w == "" {
			continue
		}
		if containsToken(respTokens, response, w) {
			hits++
		}
	}
	echoScore := 0.0
	if len(words) > 0 {
		echoScore = float64(hits) / float64(len(words))
	}

	sentenceScore := text.Clamp01(float64(text.SentenceCount(response)) / 2)

	return (lengthScore + echoScore + sentenceScore) / 3
}

// sourceQuality grades each candidate from a 0.5 baseline: having more
// than one candidate, strong similarity, a structured template source
// and substantial content each add to it, capped at 1, then averaged.
func (s *Scorer) sourceQuality(candidates []model.ContextCandidate) float64 {
	if len(candidates) == 0 {
		return 0
	}

	multi := len(candidates) > 1
	total := 0.0
	for _, c := range candidates {
		score := 0.5
		if multi {
			score += 0.2
		}
		switch {
		case c.SimilarityScore > 0.8:
			score += 0.2
		case c.SimilarityScore > 0.6:
			score += 0.1
		}
		if c.SourceKind == model.SourceTemplate {
			score += 0.1
		}
		if len(c.Content) > 200 {
			score += 0.1
		}
		total += text.Clamp01(score)
	}
	return total / float64(len(candidates))
}

// containsToken checks for an exact token match first and falls back to
// a substring scan, so inflected forms ("price" in "prices") still hit.
func containsToken(tokens map[string]struct{}, haystack, needle string) bool {
	if _, ok := tokens[needle]; ok {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), needle)
}

func recommendations(b model.ConfidenceBreakdown) []string {
	var recs []string
	if b.Relevance < 0.5 {
		recs = append(recs, "add more relevant context covering the question keywords")
	}
	if b.Completeness < 0.5 {
		recs = append(recs, "expand the response to address the question more fully")
	}
	if b.SourceQuality < 0.5 {
		recs = append(recs, "add higher-quality content sources for this topic")
	}
	if b.SemanticMatch < 0.5 {
		recs = append(recs, "review content alignment with how customers phrase this question")
	}
	return recs
}
