package model

// FlagKind identifies which pattern set raised a security flag.
type FlagKind string

const (
	FlagPromptInjection   FlagKind = "prompt_injection"
	FlagSuspiciousPattern FlagKind = "suspicious_pattern"
	FlagSystemLeak        FlagKind = "system_leak"
	FlagUnsafeTopic       FlagKind = "unsafe_topic"
)

// Severity levels for security flags.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type SecurityFlag struct {
	Kind           FlagKind `json:"kind"`
	Severity       Severity `json:"severity"`
	MatchedPattern string   `json:"matched_pattern"`
}

// SecurityVerdict is the outcome of screening one piece of text.
// IsSafe is false iff at least one flag was raised; warnings alone
// never make a verdict unsafe.
type SecurityVerdict struct {
	IsSafe         bool           `json:"is_safe"`
	Flags          []SecurityFlag `json:"flags,omitempty"`
	Warnings       []string       `json:"warnings,omitempty"`
	RelevanceScore float64        `json:"relevance_score"`
	SanitizedText  string         `json:"sanitized_text,omitempty"`
}

// OutputVerdict is the screening result for a generated response. The
// sanitized response is always usable: flagged phrasing is substituted,
// not removed, so the reply stays coherent.
type OutputVerdict struct {
	IsSafe            bool           `json:"is_safe"`
	Flags             []SecurityFlag `json:"flags,omitempty"`
	Warnings          []string       `json:"warnings,omitempty"`
	SanitizedResponse string         `json:"sanitized_response"`
}
