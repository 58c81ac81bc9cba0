package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mozilla/code-review/internal/domain"
	"github.com/mozilla/code-review/internal/repository"
	"github.com/mozilla/code-review/pkg/api"
)

// RepositoryService serves GET /v1/repository/.
type RepositoryService interface {
	List(ctx context.Context, limit, offset int) ([]api.Repository, error)
}

type RepositoryServiceImpl struct {
	BaseService
	repo repository.RepositoryRepository
}

func NewRepositoryService(log *slog.Logger, repo repository.RepositoryRepository) *RepositoryServiceImpl {
	return &RepositoryServiceImpl{
		BaseService: NewBaseService(log),
		repo:        repo,
	}
}

func (s *RepositoryServiceImpl) List(ctx context.Context, limit, offset int) ([]api.Repository, error) {
	const op = "internal.service.repository.List"

	repos, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]api.Repository, len(repos))
	for i, r := range repos {
		out[i] = toAPIRepository(r)
	}
	return out, nil
}

func toAPIRepository(r domain.Repository) api.Repository {
	return api.Repository{
		Id:        r.ID,
		Slug:      r.Slug,
		Url:       r.URL,
		Kind:      string(r.Kind),
		CreatedAt: r.CreatedAt,
	}
}
