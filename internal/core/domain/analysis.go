package domain

import (
	"strings"
	"time"
)

type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
)

// ParseRiskLevel normalizes a model-provided level. Anything outside the
// three known values is rejected.
func ParseRiskLevel(raw string) (RiskLevel, bool) {
	switch RiskLevel(strings.ToLower(strings.TrimSpace(raw))) {
	case RiskHigh:
		return RiskHigh, true
	case RiskMedium:
		return RiskMedium, true
	case RiskLow:
		return RiskLow, true
	default:
		return "", false
	}
}

type Finding struct {
	ClauseText           string    `json:"clause_text"`
	IssueDetected        string    `json:"issue_detected"`
	RiskLevel            RiskLevel `json:"risk_level"`
	Explanation          string    `json:"explanation"`
	SuggestedAlternative string    `json:"suggested_alternative"`
	SourceChunkIndex     int       `json:"source_chunk_index"`
}

// Analysis is the persisted result of one pipeline run. Records are insert-only.
type Analysis struct {
	ID              string    `json:"id"`
	Filename        string    `json:"filename"`
	ProcessedAt     time.Time `json:"processed_at"`
	AnalysisResults []Finding `json:"analysis_results"`
}

type RiskSummary struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

func (s RiskSummary) Total() int {
	return s.High + s.Medium + s.Low
}

func (a Analysis) RiskSummary() RiskSummary {
	var out RiskSummary
	for _, f := range a.AnalysisResults {
		switch f.RiskLevel {
		case RiskHigh:
			out.High++
		case RiskMedium:
			out.Medium++
		case RiskLow:
			out.Low++
		}
	}
	return out
}
