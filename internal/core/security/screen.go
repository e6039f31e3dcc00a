// Package security screens inbound questions and outbound replies with
// pattern-based heuristics. It is deliberately not a content-moderation
// model: matching is literal regex/substring work over two curated
// pattern sets plus a lexical topical-relevance signal.
package security

import (
	"regexp"
	"strings"

	"github.com/helpmate-ai/cobalt/internal/core/model"
	"github.com/helpmate-ai/cobalt/internal/core/text"
)

const sanitizedPlaceholder = "[filtered]"

// relevanceFloor is the topical score below which a low-severity warning
// is attached. The warning never flips a verdict to unsafe.
const relevanceFloor = 0.1

// InputContext carries the request-scope facts the screen may use.
type InputContext struct {
	BusinessName string
	Language     string
}

// Screen holds the compiled pattern sets and vocabulary. Build one per
// service with NewScreen and share it; it is immutable after
// construction.
type Screen struct {
	injection  []*regexp.Regexp
	suspicious []*regexp.Regexp
	vocabulary []string
}

// Options extends the built-in lists with per-deployment additions.
type Options struct {
	ExtraInjectionPatterns  []string
	ExtraSuspiciousPatterns []string
	ExtraVocabulary         []string
}

func NewScreen(opts Options) (*Screen, error) {
	injection, err := compileAll(defaultInjectionPatterns, opts.ExtraInjectionPatterns)
	if err != nil {
		return nil, err
	}
	suspicious, err := compileAll(defaultSuspiciousPatterns, opts.ExtraSuspiciousPatterns)
	if err != nil {
		return nil, err
	}

	vocab := make([]string, 0, len(defaultVocabulary)+len(opts.ExtraVocabulary))
	vocab = append(vocab, defaultVocabulary...)
	for _, w := range opts.ExtraVocabulary {
		vocab = append(vocab, strings.ToLower(w))
	}

	return &Screen{
		injection:  injection,
		suspicious: suspicious,
		vocabulary: vocab,
	}, nil
}

func compileAll(base, extra []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(base)+len(extra))
	for _, p := range append(append([]string{}, base...), extra...) {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

// ValidateInput screens one inbound question. Any match on either
// pattern set makes the verdict unsafe; the sanitized text (matched
// spans replaced, whitespace collapsed) is returned for audit logging
// but the request must not proceed with it.
func (s *Screen) ValidateInput(input string, ctx InputContext) model.SecurityVerdict {
	verdict := model.SecurityVerdict{IsSafe: true}

	for _, re := range s.injection {
		if m := re.FindString(input); m != "" {
			verdict.Flags = append(verdict.Flags, model.SecurityFlag{
				Kind:           model.FlagPromptInjection,
				Severity:       model.SeverityHigh,
				MatchedPattern: m,
			})
		}
	}
	for _, re := range s.suspicious {
		if m := re.FindString(input); m != "" {
			verdict.Flags = append(verdict.Flags, model.SecurityFlag{
				Kind:           model.FlagSuspiciousPattern,
				Severity:       model.SeverityMedium,
				MatchedPattern: m,
			})
		}
	}

	verdict.RelevanceScore = s.topicalRelevance(input)
	// The vocabulary is English-only, so the off-topic warning is
	// meaningless for other languages.
	if verdict.RelevanceScore < relevanceFloor && (ctx.Language == "" || ctx.Language == "en") {
		verdict.Warnings = append(verdict.Warnings,
			"input appears unrelated to business topics")
	}

	if len(verdict.Flags) > 0 {
		verdict.IsSafe = false
		verdict.SanitizedText = s.sanitize(input)
	}
	return verdict
}

// ValidateOutput screens a generated reply before it is returned.
// Self-referential system leakage and curated unsafe-topic phrases are
// flagged and rewritten by literal substitution; a low topical-relevance
// score only adds a warning.
func (s *Screen) ValidateOutput(response string) model.OutputVerdict {
	verdict := model.OutputVerdict{
		IsSafe:            true,
		SanitizedResponse: response,
	}

	lower := strings.ToLower(response)
	for _, sub := range leakSubstitutions {
		if strings.Contains(lower, sub.phrase) {
			verdict.Flags = append(verdict.Flags, model.SecurityFlag{
				Kind:           model.FlagSystemLeak,
				Severity:       model.SeverityHigh,
				MatchedPattern: sub.phrase,
			})
		}
	}
	for _, phrase := range unsafeTopicPhrases {
		if strings.Contains(lower, phrase) {
			verdict.Flags = append(verdict.Flags, model.SecurityFlag{
				Kind:           model.FlagUnsafeTopic,
				Severity:       model.SeverityMedium,
				MatchedPattern: phrase,
			})
		}
	}

	if s.topicalRelevance(response) < relevanceFloor {
		verdict.Warnings = append(verdict.Warnings,
			"response appears unrelated to business topics")
	}

	if len(verdict.Flags) > 0 {
		verdict.IsSafe = false
		verdict.SanitizedResponse = rewriteOutput(response)
	}
	return verdict
}

// topicalRelevance is the fraction of tokens that match the business
// vocabulary (exact match, or substring overlap with at least three
// characters on both sides), with a +0.2 bonus when two or more tokens
// matched, capped at 1.
func (s *Screen) topicalRelevance(input string) float64 {
	tokens := text.Tokenize(input)
	if len(tokens) == 0 {
		return 0
	}

	relevant := 0
	for _, tok := range tokens {
		tok = strings.Trim(tok, ".,!?;:'\"()")
		if s.isRelevantToken(tok) {
			relevant++
		}
	}

	score := float64(relevant) / float64(len(tokens))
	if relevant >= 2 {
		score += 0.2
	}
	return text.Clamp01(score)
}

func (s *Screen) isRelevantToken(tok string) bool {
	for _, kw := range s.vocabulary {
		if tok == kw {
			return true
		}
		if len(tok) >= 3 && len(kw) >= 3 &&
			(strings.Contains(tok, kw) || strings.Contains(kw, tok)) {
			return true
		}
	}
	return false
}

// sanitize replaces every span matched by either pattern set with a
// placeholder and collapses the remaining whitespace.
func (s *Screen) sanitize(input string) string {
	out := input
	for _, re := range s.injection {
		out = re.ReplaceAllString(out, sanitizedPlaceholder)
	}
	for _, re := range s.suspicious {
		out = re.ReplaceAllString(out, sanitizedPlaceholder)
	}
	return strings.Join(strings.Fields(out), " ")
}

// rewriteOutput substitutes flagged phrasing case-insensitively so the
// reply stays readable.
func rewriteOutput(response string) string {
	out := response
	for _, sub := range leakSubstitutions {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(sub.phrase))
		out = re.ReplaceAllString(out, sub.replacement)
	}
	for _, phrase := range unsafeTopicPhrases {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(phrase))
		out = re.ReplaceAllString(out, unsafeTopicSubstitution)
	}
	return out
}
