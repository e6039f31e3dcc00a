package model

// GenerationMethod tags how a response was produced.
type GenerationMethod string

const (
	MethodLLMConfident          GenerationMethod = "llm_confident"
	MethodLLMLowConfidence      GenerationMethod = "llm_low_confidence"
	MethodFallbackConfident     GenerationMethod = "fallback_confident"
	MethodFallbackLowConfidence GenerationMethod = "fallback_low_confidence"
	MethodSecurityDeflection    GenerationMethod = "security_deflection"
)

// GeneratedResponse is the output of the response generator.
type GeneratedResponse struct {
	Response        string           `json:"response"`
	ConfidenceScore float64          `json:"confidence_score"`
	IsConfident     bool             `json:"is_confident"`
	ResponseTimeMs  int64            `json:"response_time_ms"`
	SourcesUsed     []string         `json:"sources_used,omitempty"`
	Method          GenerationMethod `json:"method"`
}

// ProcessResult is what the pipeline hands back to the HTTP boundary.
// Failures are reported with Success=false plus Error/ErrorType; the
// pipeline never panics or returns a raw error past this struct.
type ProcessResult struct {
	Success            bool             `json:"success"`
	Response           string           `json:"response,omitempty"`
	ConfidenceScore    float64          `json:"confidence_score,omitempty"`
	IsAnswered         bool             `json:"is_answered"`
	ResponseTimeMs     int64            `json:"response_time_ms"`
	SequenceNumber     int              `json:"sequence_number,omitempty"`
	ContextSources     []string         `json:"context_sources,omitempty"`
	SecurityValidation *SecurityVerdict `json:"security_validation,omitempty"`
	Error              string           `json:"error,omitempty"`
	ErrorType          string           `json:"error_type,omitempty"`
}
