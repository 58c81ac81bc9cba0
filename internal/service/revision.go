package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mozilla/code-review/internal/domain"
	"github.com/mozilla/code-review/internal/repository"
	"github.com/mozilla/code-review/pkg/api"
)

// RevisionService serves GET /v1/revision/{id}/ and /diffs/.
type RevisionService interface {
	Get(ctx context.Context, id int) (*api.Revision, error)
	ListDiffs(ctx context.Context, id int, limit, offset int) ([]api.Diff, error)
}

type RevisionServiceImpl struct {
	BaseService
	revisions repository.RevisionRepository
	diffs     repository.DiffRepository
}

func NewRevisionService(log *slog.Logger, revisions repository.RevisionRepository, diffs repository.DiffRepository) *RevisionServiceImpl {
	return &RevisionServiceImpl{
		BaseService: NewBaseService(log),
		revisions:   revisions,
		diffs:       diffs,
	}
}

func (s *RevisionServiceImpl) Get(ctx context.Context, id int) (*api.Revision, error) {
	const op = "internal.service.revision.Get"

	rev, err := s.revisions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := toAPIRevision(*rev)
	return &out, nil
}

func (s *RevisionServiceImpl) ListDiffs(ctx context.Context, id int, limit, offset int) ([]api.Diff, error) {
	const op = "internal.service.revision.ListDiffs"

	diffs, err := s.diffs.ListByRevision(ctx, id, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]api.Diff, len(diffs))
	for i, d := range diffs {
		out[i] = toAPIDiff(d)
	}
	return out, nil
}

func toAPIRevision(r domain.Revision) api.Revision {
	return api.Revision{
		Id:               r.ID,
		ProviderId:       r.ProviderID,
		Provider:         string(r.Provider),
		Title:            r.Title,
		BugId:            r.BugID,
		BaseRepositoryId: r.BaseRepositoryID,
		CreatedAt:        r.CreatedAt,
	}
}
