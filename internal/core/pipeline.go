// Package core wires the screening, retrieval, scoring, generation and
// tracking components into the per-message pipeline and acts as the
// error boundary for all of them.
package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/helpmate-ai/cobalt/internal/core/confidence"
	"github.com/helpmate-ai/cobalt/internal/core/model"
	"github.com/helpmate-ai/cobalt/internal/core/response"
	"github.com/helpmate-ai/cobalt/internal/core/retrieval"
	"github.com/helpmate-ai/cobalt/internal/core/security"
	"github.com/helpmate-ai/cobalt/internal/core/tracker"
	"github.com/helpmate-ai/cobalt/internal/logger"
	"github.com/helpmate-ai/cobalt/internal/store"
)

// historyDepth is how many prior messages are handed to the generator.
const historyDepth = 5

// Pipeline processes one inbound message at a time:
// screen -> retrieve -> score -> generate -> screen -> track -> persist.
// Many pipelines run concurrently across sessions; all shared state
// lives behind atomic store operations.
type Pipeline struct {
	screen    *security.Screen
	retriever *retrieval.Retriever
	scorer    *confidence.Scorer
	generator *response.Generator
	tracker   *tracker.Tracker
	sessions  *store.SessionStore

	defaultThreshold   float64
	retrievalThreshold float64
	retrievalLimit     int

	log *logger.Logger
}

type PipelineParams struct {
	Screen             *security.Screen
	Retriever          *retrieval.Retriever
	Scorer             *confidence.Scorer
	Generator          *response.Generator
	Tracker            *tracker.Tracker
	Sessions           *store.SessionStore
	DefaultThreshold   float64
	RetrievalThreshold float64
	RetrievalLimit     int
	Logger             *logger.Logger
}

func NewPipeline(p PipelineParams) *Pipeline {
	return &Pipeline{
		screen:             p.Screen,
		retriever:          p.Retriever,
		scorer:             p.Scorer,
		generator:          p.Generator,
		tracker:            p.Tracker,
		sessions:           p.Sessions,
		defaultThreshold:   p.DefaultThreshold,
		retrievalThreshold: p.RetrievalThreshold,
		retrievalLimit:     p.RetrievalLimit,
		log:                p.Logger,
	}
}

// MessageRequest is one inbound customer message. The HTTP boundary has
// already authenticated the caller and resolved the ids.
type MessageRequest struct {
	Message    string
	SessionID  uuid.UUID
	BusinessID uuid.UUID
	Language   string
}

// ProcessMessage runs the full pipeline for one message. It never
// returns an error and never panics past itself: unexpected failures are
// logged, recorded as a system message where possible and converted to a
// structured failure result.
func (p *Pipeline) ProcessMessage(ctx context.Context, req MessageRequest) (result model.ProcessResult) {
	start := time.Now()
	log := p.log.With("session_id", req.SessionID, "business_id", req.BusinessID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline panic recovered", "panic", r)
			p.persistSystemError(ctx, req.SessionID, fmt.Sprintf("internal error: %v", r))
			result = model.ProcessResult{
				Success:        false,
				Error:          "internal error",
				ErrorType:      "internal_error",
				ResponseTimeMs: time.Since(start).Milliseconds(),
			}
		}
	}()

	business, err := p.sessions.GetBusiness(ctx, req.BusinessID)
	if err != nil {
		return p.failure(start, err)
	}
	session, err := p.sessions.GetSession(ctx, req.SessionID)
	if err != nil {
		return p.failure(start, err)
	}

	language := req.Language
	if language == "" {
		language = session.Language
	}
	threshold := p.defaultThreshold
	if business.ConfidenceThreshold != nil {
		threshold = *business.ConfidenceThreshold
	}

	// Input screening. Unsafe input terminates here: no retrieval, no
	// completion call, nothing persisted beyond the audit log.
	verdict := p.screen.ValidateInput(req.Message, security.InputContext{
		BusinessName: business.Name,
		Language:     language,
	})
	if !verdict.IsSafe {
		log.Warn("input rejected by security screening",
			"flags", len(verdict.Flags),
			"sanitized", verdict.SanitizedText)
		return model.ProcessResult{
			Success:            false,
			Error:              model.ErrSecurityRejected.Error(),
			ErrorType:          model.ErrorType(model.ErrSecurityRejected),
			Response:           "I can't help with that request. Please ask a question about our business or services.",
			SecurityValidation: &verdict,
			ResponseTimeMs:     time.Since(start).Milliseconds(),
		}
	}

	search, err := p.retriever.Search(ctx, req.Message, req.BusinessID, language, p.retrievalThreshold, p.retrievalLimit)
	if err != nil {
		log.Error("context retrieval failed", "error", err)
		p.persistSystemError(ctx, req.SessionID, "context retrieval failed")
		return p.failure(start, err)
	}
	candidates := search.Results

	// The scorer runs before generation so the generator can branch on
	// the verdict; the prospective answer it evaluates is the grounding
	// text assembled from the retrieved candidates.
	semanticScore := 0.0
	if len(candidates) > 0 {
		semanticScore = candidates[0].SimilarityScore
	}
	grounding := combineCandidates(candidates)
	scored := p.scorer.Score(req.Message, grounding, candidates, semanticScore, threshold)

	history, err := p.sessions.RecentMessages(ctx, req.SessionID, historyDepth)
	if err != nil {
		log.Warn("failed to load recent history", "error", err)
	}

	gen := p.generator.Generate(ctx, response.Request{
		Question:        req.Message,
		Candidates:      candidates,
		ConfidenceScore: scored.Score,
		IsConfident:     scored.IsConfident,
		BusinessName:    business.Name,
		Language:        language,
		History:         toTurns(history),
	})

	p.retriever.RecordHits(ctx, candidates)

	if !scored.IsConfident {
		p.tracker.Track(ctx, tracker.Record{
			Question:        req.Message,
			BusinessID:      req.BusinessID,
			SessionID:       req.SessionID,
			ConfidenceScore: scored.Score,
			ContextSources:  len(candidates),
		})
	}

	seq, err := p.persistExchange(ctx, req, verdict, scored, gen)
	if err != nil {
		log.Error("failed to persist exchange", "error", err)
		return p.failure(start, fmt.Errorf("%w: %v", model.ErrPersistenceFailure, err))
	}

	elapsed := time.Since(start)
	if err := p.sessions.BumpStats(ctx, req.SessionID, scored.IsConfident, scored.Score, elapsed); err != nil {
		// Stats drift is tolerable; the exchange itself is saved.
		log.Warn("failed to update session stats", "error", err)
	}

	sources := make([]string, 0, len(candidates))
	for _, c := range candidates {
		sources = append(sources, c.DisplayName)
	}

	return model.ProcessResult{
		Success:            true,
		Response:           gen.Response,
		ConfidenceScore:    scored.Score,
		IsAnswered:         scored.IsConfident,
		ResponseTimeMs:     elapsed.Milliseconds(),
		SequenceNumber:     seq,
		ContextSources:     sources,
		SecurityValidation: &verdict,
	}
}

// persistExchange writes the user turn and the assistant turn with
// monotone sequence numbers. This is the primary save path: its failure
// is surfaced, unlike tracking or hit counting.
func (p *Pipeline) persistExchange(ctx context.Context, req MessageRequest, verdict model.SecurityVerdict, scored model.ConfidenceResult, gen model.GeneratedResponse) (int, error) {
	userSeq, err := p.sessions.NextSequence(ctx, req.SessionID)
	if err != nil {
		return 0, err
	}
	if err := p.sessions.SaveMessage(ctx, &store.TestMessage{
		SessionID:      req.SessionID,
		SequenceNumber: userSeq,
		Role:           "user",
		Content:        req.Message,
		SecurityFlags:  marshalFlags(verdict.Flags),
	}); err != nil {
		return 0, err
	}

	asstSeq, err := p.sessions.NextSequence(ctx, req.SessionID)
	if err != nil {
		return 0, err
	}
	if err := p.sessions.SaveMessage(ctx, &store.TestMessage{
		SessionID:       req.SessionID,
		SequenceNumber:  asstSeq,
		Role:            "assistant",
		Content:         gen.Response,
		ConfidenceScore: scored.Score,
		ResponseTimeMs:  gen.ResponseTimeMs,
		Answered:        scored.IsConfident,
	}); err != nil {
		return 0, err
	}
	return asstSeq, nil
}

// persistSystemError best-effort records an error marker at the current
// sequence position so the conversation log shows where processing
// broke.
func (p *Pipeline) persistSystemError(ctx context.Context, sessionID uuid.UUID, msg string) {
	seq, err := p.sessions.NextSequence(ctx, sessionID)
	if err != nil {
		p.log.Warn("failed to reserve sequence for system message", "error", err)
		return
	}
	err = p.sessions.SaveMessage(ctx, &store.TestMessage{
		SessionID:      sessionID,
		SequenceNumber: seq,
		Role:           "system",
		Content:        msg,
	})
	if err != nil {
		p.log.Warn("failed to persist system message", "error", err)
	}
}

func (p *Pipeline) failure(start time.Time, err error) model.ProcessResult {
	return model.ProcessResult{
		Success:        false,
		Error:          err.Error(),
		ErrorType:      model.ErrorType(err),
		ResponseTimeMs: time.Since(start).Milliseconds(),
	}
}

func combineCandidates(candidates []model.ContextCandidate) string {
	var sb strings.Builder
	for _, c := range candidates {
		sb.WriteString(c.Content)
		sb.WriteString(" ")
	}
	return strings.TrimSpace(sb.String())
}

func toTurns(messages []store.TestMessage) []response.Turn {
	turns := make([]response.Turn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, response.Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}

func marshalFlags(flags []model.SecurityFlag) string {
	if len(flags) == 0 {
		return ""
	}
	raw, err := json.Marshal(flags)
	if err != nil {
		return ""
	}
	return string(raw)
}
