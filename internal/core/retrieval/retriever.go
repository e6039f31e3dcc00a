// Package retrieval fetches candidate content for a query and ranks it
// by lexical similarity. There is no embedding search here: relevance is
// approximated with token-set overlap, which is what the product ships.
package retrieval

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/helpmate-ai/cobalt/internal/core/model"
	"github.com/helpmate-ai/cobalt/internal/core/text"
	"github.com/helpmate-ai/cobalt/internal/logger"
	"github.com/helpmate-ai/cobalt/internal/store"
)

type Retriever struct {
	content          *store.ContentStore
	diversityPenalty float64
	log              *logger.Logger
}

func NewRetriever(content *store.ContentStore, diversityPenalty float64, log *logger.Logger) *Retriever {
	return &Retriever{
		content:          content,
		diversityPenalty: diversityPenalty,
		log:              log,
	}
}

// SearchMetadata describes one retrieval run.
type SearchMetadata struct {
	Query           string  `json:"query"`
	Threshold       float64 `json:"threshold"`
	TotalCandidates int     `json:"total_candidates"`
	Returned        int     `json:"returned"`
	ElapsedMs       int64   `json:"elapsed_ms"`
}

type SearchResult struct {
	Results  []model.ContextCandidate `json:"results"`
	Metadata SearchMetadata           `json:"metadata"`
}

// Search scores every active content unit for the business and language
// against the query, discards candidates below threshold, applies the
// diversity adjustment and truncates to limit. A threshold above 1
// yields an empty result since similarities never exceed 1.
func (r *Retriever) Search(ctx context.Context, query string, businessID uuid.UUID, language string, threshold float64, limit int) (*SearchResult, error) {
	start := time.Now()

	candidates, err := r.fetchSources(ctx, businessID, language)
	if err != nil {
		return nil, err
	}
	total := len(candidates)

	var kept []model.ContextCandidate
	for _, c := range candidates {
		c.SimilarityScore = r.score(query, c)
		if c.SimilarityScore >= threshold {
			kept = append(kept, c)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].SimilarityScore > kept[j].SimilarityScore
	})
	kept = r.diversify(kept)
	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}

	return &SearchResult{
		Results: kept,
		Metadata: SearchMetadata{
			Query:           query,
			Threshold:       threshold,
			TotalCandidates: total,
			Returned:        len(kept),
			ElapsedMs:       time.Since(start).Milliseconds(),
		},
	}, nil
}

// FetchAll returns every active content unit stamped with a maximal
// similarity score, for callers that want the full grounding context
// regardless of relevance.
func (r *Retriever) FetchAll(ctx context.Context, businessID uuid.UUID, language string) ([]model.ContextCandidate, error) {
	candidates, err := r.fetchSources(ctx, businessID, language)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		candidates[i].SimilarityScore = 1.0
	}
	return candidates, nil
}

// score computes the query similarity for one candidate. FAQ entries are
// scored against question and answer independently, keeping the maximum.
func (r *Retriever) score(query string, c model.ContextCandidate) float64 {
	switch c.SourceKind {
	case model.SourceFAQ:
		q := text.JaccardSimilarity(query, c.DisplayName)
		a := text.JaccardSimilarity(query, c.Content)
		if q > a {
			return q
		}
		return a
	case model.SourceTemplate, model.SourceSection:
		return text.JaccardSimilarity(query, c.Content)
	default:
		return 0
	}
}

// diversify walks the ranked list once, penalizing each candidate by the
// configured step for every earlier candidate of the same source kind,
// then re-sorts. One source kind therefore cannot monopolize the top-N
// when another kind scored close behind. Stored similarity scores stay
// untouched; the adjustment only reorders.
func (r *Retriever) diversify(ranked []model.ContextCandidate) []model.ContextCandidate {
	if len(ranked) < 2 || r.diversityPenalty == 0 {
		return ranked
	}

	adjusted := make([]float64, len(ranked))
	seen := make(map[model.SourceKind]int)
	for i, c := range ranked {
		adjusted[i] = c.SimilarityScore - r.diversityPenalty*float64(seen[c.SourceKind])
		seen[c.SourceKind]++
	}

	idx := make([]int, len(ranked))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return adjusted[idx[a]] > adjusted[idx[b]]
	})

	out := make([]model.ContextCandidate, len(ranked))
	for i, j := range idx {
		out[i] = ranked[j]
	}
	return out
}

// fetchSources loads the three source kinds concurrently and joins them
// into one candidate list.
func (r *Retriever) fetchSources(ctx context.Context, businessID uuid.UUID, language string) ([]model.ContextCandidate, error) {
	var (
		wg        sync.WaitGroup
		templates []store.AnswerTemplate
		sections  []store.ContextSection
		faqs      []store.FAQEntry
		errT      error
		errS      error
		errF      error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		templates, errT = r.content.Templates(ctx, businessID, language)
	}()
	go func() {
		defer wg.Done()
		sections, errS = r.content.Sections(ctx, businessID, language)
	}()
	go func() {
		defer wg.Done()
		faqs, errF = r.content.FAQs(ctx, businessID, language)
	}()
	wg.Wait()

	for _, err := range []error{errT, errS, errF} {
		if err != nil {
			return nil, err
		}
	}

	var out []model.ContextCandidate
	for _, t := range templates {
		if t.Content == "" {
			continue
		}
		out = append(out, model.ContextCandidate{
			ID:          t.ID.String(),
			SourceKind:  model.SourceTemplate,
			SectionKey:  t.SectionKey,
			DisplayName: t.DisplayName,
			Content:     t.Content,
			SourceMetadata: model.SourceMetadata{
				WordCount:  text.WordCount(t.Content),
				CharCount:  len(t.Content),
				UsageCount: t.UsageCount,
				Language:   t.Language,
			},
		})
	}
	for _, sec := range sections {
		if sec.Content == "" {
			continue
		}
		out = append(out, model.ContextCandidate{
			ID:          sec.ID.String(),
			SourceKind:  model.SourceSection,
			SectionKey:  sec.SectionKey,
			DisplayName: sec.Title,
			Content:     sec.Content,
			SourceMetadata: model.SourceMetadata{
				WordCount:  text.WordCount(sec.Content),
				CharCount:  len(sec.Content),
				UsageCount: sec.UsageCount,
				Language:   sec.Language,
			},
		})
	}
	for _, f := range faqs {
		if f.Answer == "" {
			continue
		}
		out = append(out, model.ContextCandidate{
			ID:          f.ID.String(),
			SourceKind:  model.SourceFAQ,
			DisplayName: f.Question,
			Content:     f.Answer,
			SourceMetadata: model.SourceMetadata{
				WordCount:  text.WordCount(f.Answer),
				CharCount:  len(f.Answer),
				UsageCount: f.UsageCount,
				Language:   f.Language,
			},
		})
	}
	return out, nil
}

// RecordHits bumps the usage counters of the candidates that were
// actually used in a response. Failures are logged and swallowed; losing
// a hit count must never fail the user-facing request.
func (r *Retriever) RecordHits(ctx context.Context, candidates []model.ContextCandidate) {
	byKind := make(map[model.SourceKind][]uuid.UUID)
	for _, c := range candidates {
		id, err := uuid.Parse(c.ID)
		if err != nil {
			continue
		}
		byKind[c.SourceKind] = append(byKind[c.SourceKind], id)
	}

	for kind, ids := range byKind {
		var err error
		switch kind {
		case model.SourceTemplate:
			err = r.content.RecordTemplateHits(ctx, ids)
		case model.SourceSection:
			err = r.content.RecordSectionHits(ctx, ids)
		case model.SourceFAQ:
			err = r.content.RecordFAQHits(ctx, ids)
		}
		if err != nil {
			r.log.Warn("failed to record content hits", "kind", kind, "count", len(ids), "error", err)
		}
	}
}
