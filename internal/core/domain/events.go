package domain

import "time"

// AnalysisRequest is the queued job for asynchronous analysis of an archived upload.
type AnalysisRequest struct {
	RequestID   string    `json:"request_id"`
	StorageKey  string    `json:"storage_key"`
	Filename    string    `json:"filename"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// AnalysisCompleted is published after an Analysis has been persisted.
type AnalysisCompleted struct {
	AnalysisID  string    `json:"analysis_id"`
	Filename    string    `json:"filename"`
	ProcessedAt time.Time `json:"processed_at"`
	Findings    int       `json:"findings"`
	High        int       `json:"high"`
	Medium      int       `json:"medium"`
	Low         int       `json:"low"`
}

func NewAnalysisCompleted(a *Analysis) AnalysisCompleted {
	summary := a.RiskSummary()
	return AnalysisCompleted{
		AnalysisID:  a.ID,
		Filename:    a.Filename,
		ProcessedAt: a.ProcessedAt,
		Findings:    len(a.AnalysisResults),
		High:        summary.High,
		Medium:      summary.Medium,
		Low:         summary.Low,
	}
}

type HealthReport struct {
	Status    string    `json:"status"`
	Database  string    `json:"database,omitempty"`
	LLM       string    `json:"llm,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (h HealthReport) Healthy() bool {
	return h.Status == "healthy"
}
