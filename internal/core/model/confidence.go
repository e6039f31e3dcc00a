package model

// ConfidenceWeights is the immutable weight table for the aggregate score.
// The four weights must sum to 1.
type ConfidenceWeights struct {
	Relevance     float64 `toml:"relevance" json:"relevance"`
	Completeness  float64 `toml:"completeness" json:"completeness"`
	SourceQuality float64 `toml:"source_quality" json:"source_quality"`
	SemanticMatch float64 `toml:"semantic_match" json:"semantic_match"`
}

// DefaultConfidenceWeights returns the standard weighting.
func DefaultConfidenceWeights() ConfidenceWeights {
	return ConfidenceWeights{
		Relevance:     0.4,
		Completeness:  0.3,
		SourceQuality: 0.2,
		SemanticMatch: 0.1,
	}
}

// Sum returns the total of the four weights.
func (w ConfidenceWeights) Sum() float64 {
	return w.Relevance + w.Completeness + w.SourceQuality + w.SemanticMatch
}

// ConfidenceBreakdown holds the four component signals, each in [0,1].
type ConfidenceBreakdown struct {
	Relevance     float64 `json:"relevance"`
	Completeness  float64 `json:"completeness"`
	SourceQuality float64 `json:"source_quality"`
	SemanticMatch float64 `json:"semantic_match"`
}

// ConfidenceResult is the scoring outcome for one question/response pair.
// Score is the weighted sum of the breakdown components.
type ConfidenceResult struct {
	Score           float64             `json:"score"`
	IsConfident     bool                `json:"is_confident"`
	Threshold       float64             `json:"threshold"`
	Breakdown       ConfidenceBreakdown `json:"breakdown"`
	Recommendations []string            `json:"recommendations,omitempty"`
}
