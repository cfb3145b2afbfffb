package cache

import (
	"context"
	"time"

	"billmitra/backend/internal/domain"
)

type SuggestionCache interface {
	Get(ctx context.Context, key string) ([]domain.Candidate, bool, error)
	Set(ctx context.Context, key string, candidates []domain.Candidate, ttl time.Duration) error
}

type NoopSuggestionCache struct{}

func (NoopSuggestionCache) Get(_ context.Context, _ string) ([]domain.Candidate, bool, error) {
	return nil, false, nil
}

func (NoopSuggestionCache) Set(_ context.Context, _ string, _ []domain.Candidate, _ time.Duration) error {
	return nil
}
