package models

import "slices"

// Label is the verdict returned by the classifier
type Label string

const (
	LabelSafe       Label = "Safe"
	LabelSuspicious Label = "Suspicious"
	LabelPhishing   Label = "Phishing"
)

// Labels lists every accepted label in display order
var Labels = []Label{LabelSafe, LabelSuspicious, LabelPhishing}

// Valid reports whether l is one of the enumerated labels
func (l Label) Valid() bool {
	return slices.Contains(Labels, l)
}

// RiskBand is the score-derived display bucket. It is never stored.
type RiskBand string

const (
	RiskLow    RiskBand = "low"
	RiskMedium RiskBand = "medium"
	RiskHigh   RiskBand = "high"
)

// Score thresholds for risk bands
const (
	MediumRiskThreshold = 30
	HighRiskThreshold   = 70
)

// BandForScore maps a 0-100 score onto a risk band
func BandForScore(score int) RiskBand {
	switch {
	case score >= HighRiskThreshold:
		return RiskHigh
	case score >= MediumRiskThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// AnalysisResult is the validated verdict for one submitted message
type AnalysisResult struct {
	Label            Label    `json:"label"`
	Score            int      `json:"score"`
	Language         string   `json:"language"`
	Reasoning        string   `json:"reasoning"`
	TriggeredRules   []string `json:"triggeredRules"`
	ThreatType       string   `json:"threatType"`
	HighlightedTerms []string `json:"highlightedTerms"`
}

// RiskBand returns the display bucket for the result's score
func (r *AnalysisResult) RiskBand() RiskBand {
	return BandForScore(r.Score)
}

// Clone returns a deep copy so callers never share slices with session state
func (r *AnalysisResult) Clone() *AnalysisResult {
	if r == nil {
		return nil
	}
	c := *r
	c.TriggeredRules = slices.Clone(r.TriggeredRules)
	c.HighlightedTerms = slices.Clone(r.HighlightedTerms)
	if c.TriggeredRules == nil {
		c.TriggeredRules = []string{}
	}
	if c.HighlightedTerms == nil {
		c.HighlightedTerms = []string{}
	}
	return &c
}

// AnalyzeRequest is the body of a submit call
type AnalyzeRequest struct {
	Text string `json:"text"`
}

// InputRequest replaces the current input text
type InputRequest struct {
	Text string `json:"text"`
}
