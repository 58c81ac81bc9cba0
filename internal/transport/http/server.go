// package http implements the HTTP transport layer for the backend system
// of record (spec.md §6). It decodes and validates query/path parameters,
// calls the appropriate service methods, and encodes paginated JSON
// responses.
package http

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mozilla/code-review/internal/apperrors"
	"github.com/mozilla/code-review/internal/repository"
	"github.com/mozilla/code-review/internal/service"
	"github.com/mozilla/code-review/internal/validation"
	"github.com/mozilla/code-review/pkg/api"
	"github.com/mozilla/code-review/pkg/logger/sl"
	"github.com/mozilla/code-review/swagger"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultLimit = 50

// Server holds the dependencies for the HTTP server, including the logger
// and service interfaces.
type Server struct {
	log         *slog.Logger
	repoService service.RepositoryService
	revService  service.RevisionService
	diffService service.DiffService
	chkService  service.CheckService
}

// NewServer creates a new instance of the HTTP server.
func NewServer(
	log *slog.Logger,
	repoService service.RepositoryService,
	revService service.RevisionService,
	diffService service.DiffService,
	chkService service.CheckService,
) *Server {
	return &Server{
		log:         log,
		repoService: repoService,
		revService:  revService,
		diffService: diffService,
		chkService:  chkService,
	}
}

// Routes sets up the router with all middleware and API endpoints. It uses
// the hand-authored pkg/api router for oapi-codegen-shaped dispatch.
func (s *Server) Routes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(s.requestID)
	mux.Use(s.logRequest)
	mux.Use(s.metricsMiddleware)

	swaggerHandler, err := swagger.GetHandler()
	if err != nil {
		s.log.Error("failed to get swagger handler", sl.Err(err))
	} else {
		mux.Mount("/swagger", http.StripPrefix("/swagger", swaggerHandler))
	}

	mux.Handle("/metrics", promhttp.Handler())
	mux.Mount("/", api.Handler(s))

	return mux
}

func (s *Server) ListRepository(w http.ResponseWriter, r *http.Request, params api.ListRepositoryParams) {
	const op = "internal.transport.http.ListRepository"

	limit, offset := pageOf(params.Limit, params.Offset)

	repos, err := s.repoService.List(r.Context(), limit, offset)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, api.Page[api.Repository]{Results: repos, Limit: limit, Offset: offset})
}

func (s *Server) ListDiff(w http.ResponseWriter, r *http.Request, params api.ListDiffParams) {
	const op = "internal.transport.http.ListDiff"

	limit, offset := pageOf(params.Limit, params.Offset)

	f := repository.ListFilter{Limit: limit, Offset: offset}
	if params.Search != nil {
		f.Search = *params.Search
	}
	if params.Repository != nil {
		f.Repository = *params.Repository
	}
	if params.Issues != nil {
		f.Issues = *params.Issues
	}

	if err := validation.ValidateStruct(&listDiffQuery{Issues: f.Issues}); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	diffs, err := s.diffService.List(r.Context(), f)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, api.Page[api.Diff]{Results: diffs, Limit: limit, Offset: offset})
}

// listDiffQuery validates the issues filter value against the enum
// spec.md §6 defines for GET /v1/diff/.
type listDiffQuery struct {
	Issues string `validate:"omitempty,oneof=no any publishable"`
}

func (s *Server) GetDiff(w http.ResponseWriter, r *http.Request, id int) {
	const op = "internal.transport.http.GetDiff"

	diff, err := s.diffService.Get(r.Context(), id)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, diff)
}

func (s *Server) ListDiffIssues(w http.ResponseWriter, r *http.Request, id int, params api.ListDiffIssuesParams) {
	const op = "internal.transport.http.ListDiffIssues"

	limit, offset := pageOf(params.Limit, params.Offset)

	issues, err := s.diffService.ListIssues(r.Context(), id, limit, offset)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, api.Page[api.Issue]{Results: issues, Limit: limit, Offset: offset})
}

func (s *Server) GetRevision(w http.ResponseWriter, r *http.Request, id int) {
	const op = "internal.transport.http.GetRevision"

	rev, err := s.revService.Get(r.Context(), id)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, rev)
}

func (s *Server) ListRevisionDiffs(w http.ResponseWriter, r *http.Request, id int, params api.ListRevisionDiffsParams) {
	const op = "internal.transport.http.ListRevisionDiffs"

	limit, offset := pageOf(params.Limit, params.Offset)

	diffs, err := s.revService.ListDiffs(r.Context(), id, limit, offset)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, api.Page[api.Diff]{Results: diffs, Limit: limit, Offset: offset})
}

func (s *Server) GetCheck(w http.ResponseWriter, r *http.Request, repositorySlug string, analyzer string, check string, params api.GetCheckParams) {
	const op = "internal.transport.http.GetCheck"

	limit, offset := pageOf(params.Limit, params.Offset)
	publishableOnly := params.Publishable != nil && *params.Publishable

	issues, err := s.chkService.List(r.Context(), repositorySlug, analyzer, check, publishableOnly, limit, offset)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, api.Page[api.Issue]{Results: issues, Limit: limit, Offset: offset})
}

func (s *Server) GetCheckStats(w http.ResponseWriter, r *http.Request, params api.GetCheckStatsParams) {
	const op = "internal.transport.http.GetCheckStats"

	since, err := parseSince(params.Since)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid since date")
		return
	}

	stats, err := s.chkService.Stats(r.Context(), since)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string][]api.CheckStat{"stats": stats})
}

func (s *Server) GetCheckHistory(w http.ResponseWriter, r *http.Request, params api.GetCheckHistoryParams) {
	const op = "internal.transport.http.GetCheckHistory"

	since, err := parseSince(params.Since)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid since date")
		return
	}

	var repositorySlug, analyzer, check string
	if params.Repository != nil {
		repositorySlug = *params.Repository
	}
	if params.Analyzer != nil {
		analyzer = *params.Analyzer
	}
	if params.Check != nil {
		check = *params.Check
	}

	points, err := s.chkService.History(r.Context(), repositorySlug, analyzer, check, since)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, points)
}

func pageOf(limit, offset *int) (int, int) {
	l := defaultLimit
	if limit != nil && *limit > 0 {
		l = *limit
	}
	o := 0
	if offset != nil && *offset > 0 {
		o = *offset
	}
	return l, o
}

func parseSince(raw *string) (sql.NullTime, error) {
	if raw == nil || *raw == "" {
		return sql.NullTime{}, nil
	}
	t, err := time.Parse("2006-01-02", *raw)
	if err != nil {
		return sql.NullTime{}, err
	}
	return sql.NullTime{Time: t, Valid: true}, nil
}

// respond is a helper function to encode data to JSON and write it to the
// response. It centralizes setting the Content-Type header and writing the
// status code.
func (s *Server) respond(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.log.Error("failed to encode response", sl.Err(err))
		}
	}
}

// respondError is a convenience wrapper around respond for sending simple
// error messages.
func (s *Server) respondError(w http.ResponseWriter, code int, message string) {
	s.respond(w, code, map[string]string{"error": message})
}

// respondAPIError formats and sends a structured error response that
// conforms to the OpenAPI specification.
func (s *Server) respondAPIError(w http.ResponseWriter, code int, apiCode api.ErrorResponseErrorCode, message string) {
	errResp := api.ErrorResponse{}
	errResp.Error.Code = apiCode
	errResp.Error.Message = message
	s.respond(w, code, errResp)
}

// handleServiceError provides centralized error handling for all HTTP
// handlers. It logs the internal error and maps it to a user-friendly HTTP
// response.
func (s *Server) handleServiceError(w http.ResponseWriter, _ *http.Request, op string, err error) {
	log := s.log.With(slog.String("op", op))
	log.Error("service error occurred", sl.Err(err))

	var validationErr *validation.ValidationError

	switch {
	case errors.As(err, &validationErr):
		wrappedErr := fmt.Errorf("%w: %s", apperrors.ErrValidation, validationErr.Error())
		s.respondError(w, http.StatusBadRequest, wrappedErr.Error())
	case errors.Is(err, apperrors.ErrInvalidRequest):
		s.respondError(w, http.StatusBadRequest, "invalid request")
	case errors.Is(err, apperrors.ErrNotFound):
		s.respondAPIError(w, http.StatusNotFound, api.NOTFOUND, "resource not found")
	default:
		s.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
