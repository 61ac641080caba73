package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/contract-clause-checker/internal/core/domain"
	"github.com/kirillkom/contract-clause-checker/internal/core/ports"
)

const DefaultListLimit = 100

// AnalysisCatalog serves stored analyses to the outer surfaces.
type AnalysisCatalog struct {
	repo      ports.AnalysisRepository
	listLimit int
}

func NewAnalysisCatalog(repo ports.AnalysisRepository, listLimit int) *AnalysisCatalog {
	if listLimit <= 0 {
		listLimit = DefaultListLimit
	}
	return &AnalysisCatalog{repo: repo, listLimit: listLimit}
}

func (c *AnalysisCatalog) GetByID(ctx context.Context, id string) (*domain.Analysis, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get analysis", errors.New("analysis id is required"))
	}
	return c.repo.GetByID(ctx, id)
}

// List returns the newest analyses first, bounded by the configured limit.
func (c *AnalysisCatalog) List(ctx context.Context) ([]domain.Analysis, error) {
	items, err := c.repo.List(ctx, c.listLimit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Analysis{}
	}
	return items, nil
}

func (c *AnalysisCatalog) Delete(ctx context.Context, id string) error {
	deleted, err := c.repo.Delete(ctx, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if !deleted {
		return domain.WrapError(domain.ErrAnalysisNotFound, "delete analysis", fmt.Errorf("id=%s", id))
	}
	return nil
}
