// Package response produces the user-facing reply. The upstream
// completion API is treated as unreliable: both confidence branches wrap
// their call in a fallback resolution step that substitutes
// deterministic templated text, so an outage degrades the answer instead
// of failing the request.
package response

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/helpmate-ai/cobalt/internal/core/model"
	"github.com/helpmate-ai/cobalt/internal/core/security"
	"github.com/helpmate-ai/cobalt/internal/llm"
	"github.com/helpmate-ai/cobalt/internal/logger"
)

type Generator struct {
	client  llm.CompletionClient
	screen  *security.Screen
	timeout time.Duration
	log     *logger.Logger
}

func NewGenerator(client llm.CompletionClient, screen *security.Screen, timeout time.Duration, log *logger.Logger) *Generator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Generator{
		client:  client,
		screen:  screen,
		timeout: timeout,
		log:     log,
	}
}

// Turn is one prior exchange handed to the generator as conversation
// context.
type Turn struct {
	Role    string
	Content string
}

type Request struct {
	Question        string
	Candidates      []model.ContextCandidate
	ConfidenceScore float64
	IsConfident     bool
	BusinessName    string
	Language        string
	History         []Turn
}

// Generate builds the grounding context and produces a reply. It never
// returns an error: upstream failure resolves to the branch's fallback
// text and unsafe questions resolve to a deflection.
func (g *Generator) Generate(ctx context.Context, req Request) model.GeneratedResponse {
	start := time.Now()

	grounding := buildGrounding(req.BusinessName, req.Candidates)
	sources := make([]string, 0, len(req.Candidates))
	for _, c := range req.Candidates {
		sources = append(sources, c.DisplayName)
	}

	out := model.GeneratedResponse{
		ConfidenceScore: req.ConfidenceScore,
		IsConfident:     req.IsConfident,
		SourcesUsed:     sources,
	}

	if req.IsConfident {
		text, deflected, err := g.complete(ctx, confidentSystemPrompt, grounding, req)
		switch {
		case deflected:
			out.Response = text
			out.Method = model.MethodSecurityDeflection
		case err != nil:
			g.log.Warn("completion failed on confident path, using fallback",
				"error", err)
			out.Response = confidentFallback(req.Question, req.BusinessName)
			out.Method = model.MethodFallbackConfident
		default:
			out.Response = text
			out.Method = model.MethodLLMConfident
		}
	} else {
		text, deflected, err := g.complete(ctx, lowConfidenceSystemPrompt, grounding, req)
		switch {
		case deflected:
			out.Response = text
			out.Method = model.MethodSecurityDeflection
		case err != nil:
			g.log.Warn("completion failed on low-confidence path, using fallback",
				"error", err)
			out.Response = lowConfidenceFallback(req.Question, req.BusinessName)
			out.Method = model.MethodFallbackLowConfidence
		default:
			out.Response = text
			out.Method = model.MethodLLMLowConfidence
		}
	}

	out.ResponseTimeMs = time.Since(start).Milliseconds()
	return out
}

// deflectionResponse is returned when the question was flagged unsafe.
const deflectionResponse = "I'm here to help with questions about our business and services. Could you rephrase your question?"

// complete runs the question through the security screen, then calls the
// upstream model with the grounding context. Unsafe questions skip the
// API entirely and resolve to a deflection; upstream failures surface as
// ErrUpstreamUnavailable for the caller's fallback step.
func (g *Generator) complete(ctx context.Context, systemPrompt, grounding string, req Request) (string, bool, error) {
	verdict := g.screen.ValidateInput(req.Question, security.InputContext{
		BusinessName: req.BusinessName,
		Language:     req.Language,
	})
	if !verdict.IsSafe {
		return deflectionResponse, true, nil
	}

	var sb strings.Builder
	sb.WriteString(grounding)
	if len(req.History) > 0 {
		sb.WriteString("\nRecent conversation:\n")
		for _, t := range req.History {
			fmt.Fprintf(&sb, "%s: %s\n", t.Role, t.Content)
		}
	}
	fmt.Fprintf(&sb, "\nCustomer question: %s", req.Question)

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := g.client.Generate(callCtx, systemPrompt, sb.String())
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", model.ErrUpstreamUnavailable, err)
	}

	filtered := g.screen.ValidateOutput(text)
	if !filtered.IsSafe {
		g.log.Warn("response rewritten by output screening",
			"flags", len(filtered.Flags))
	}
	return filtered.SanitizedResponse, false, nil
}

func buildGrounding(businessName string, candidates []model.ContextCandidate) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Business: %s\n", businessName)
	if len(candidates) > 0 {
		sb.WriteString("Business information:\n")
		for _, c := range candidates {
			fmt.Fprintf(&sb, "## %s\n%s\n", c.DisplayName, c.Content)
		}
	}
	return sb.String()
}

const confidentSystemPrompt = `You are a helpful customer support assistant. Answer the customer's question using only the business information provided. Be concise, friendly and factual. Do not invent details that are not in the provided information.`

const lowConfidenceSystemPrompt = `You are a helpful customer support assistant. The available business information may not fully cover this question. Answer what you can from the provided information, be upfront about what you do not know, and suggest contacting the business directly for specifics. Do not guess.`

func confidentFallback(question, businessName string) string {
	return fmt.Sprintf(
		"Thanks for asking about %q. We have information on this topic, but I'm unable to compose a full answer right now. Please try again in a moment, or contact %s directly and the team will be happy to help.",
		question, businessName)
}

func lowConfidenceFallback(question, businessName string) string {
	return fmt.Sprintf(
		"I don't have enough information to answer %q with confidence. Your question has been noted so %s can follow up. In the meantime, please reach out to the team directly for an accurate answer.",
		question, businessName)
}
