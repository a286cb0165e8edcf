package model

import (
	"strconv"
	"strings"
)

// ExtractionResult is the confidence-scored output of the upstream
// extraction step, as consumed from the pipeline collaborator.
type ExtractionResult struct {
	ExtractedResult  map[string]any    `json:"extracted_result"`
	Confidence       map[string]any    `json:"confidence"`
	Comparison       *ComparisonResult `json:"comparison_result"`
	PromptTokens     int               `json:"prompt_tokens,omitempty"`
	CompletionTokens int               `json:"completion_tokens,omitempty"`
}

// ComparisonResult holds the per-field comparison items the verifier
// annotates in place.
type ComparisonResult struct {
	Items []*ComparisonItem `json:"items"`
}

// ComparisonItem is one extracted field with its confidence, plus the
// verification annotations written back after lookup. Field keys keep the
// upstream capitalized names.
type ComparisonItem struct {
	Field      string `json:"Field"`
	Extracted  any    `json:"Extracted"`
	Confidence string `json:"Confidence"` // percentage string, e.g. "93.00%"
	State      string `json:"State,omitempty"`

	VerificationStatus       string         `json:"VerificationStatus,omitempty"`
	VerificationDetails      map[string]any `json:"VerificationDetails,omitempty"`
	VerifiedAt               string         `json:"VerifiedAt,omitempty"`
	VerificationResponseTime float64        `json:"VerificationResponseTime,omitempty"`
}

// ConfidenceValue parses the item's percentage-formatted confidence into a
// 0.0-1.0 score. Absent or unparseable confidence is 0.
func (i *ComparisonItem) ConfidenceValue() float64 {
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(i.Confidence), "%"))
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v / 100
}

// ExtractedString returns the extracted value as a string, or "" when the
// value is absent or not textual.
func (i *ComparisonItem) ExtractedString() string {
	switch v := i.Extracted.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return ""
	}
}
