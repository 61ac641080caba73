package usecase

import (
	"context"
	"time"

	"github.com/kirillkom/contract-clause-checker/internal/core/domain"
	"github.com/kirillkom/contract-clause-checker/internal/core/ports"
)

type HealthUseCase struct {
	repo    ports.AnalysisRepository
	probe   ports.ModelProbe
	timeout time.Duration
}

func NewHealthUseCase(repo ports.AnalysisRepository, probe ports.ModelProbe, timeout time.Duration) *HealthUseCase {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HealthUseCase{repo: repo, probe: probe, timeout: timeout}
}

// Check pings the repository and sends one unretried request to the model backend.
func (uc *HealthUseCase) Check(ctx context.Context) domain.HealthReport {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	now := time.Now().UTC()

	if err := uc.repo.Ping(ctx); err != nil {
		return domain.HealthReport{Status: "unhealthy", Error: "database: " + err.Error(), Timestamp: now}
	}
	if uc.probe != nil {
		if err := uc.probe.Probe(ctx, probeRequest()); err != nil {
			return domain.HealthReport{Status: "unhealthy", Database: "connected", Error: "llm: " + err.Error(), Timestamp: now}
		}
	}
	return domain.HealthReport{Status: "healthy", Database: "connected", LLM: "connected", Timestamp: now}
}
