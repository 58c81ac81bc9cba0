package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mozilla/code-review/internal/apperrors"
	"github.com/mozilla/code-review/internal/repository"
	"github.com/mozilla/code-review/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestServer() (*Server, *RepositoryServiceMock, *RevisionServiceMock, *DiffServiceMock, *CheckServiceMock) {
	repoMock := new(RepositoryServiceMock)
	revMock := new(RevisionServiceMock)
	diffMock := new(DiffServiceMock)
	chkMock := new(CheckServiceMock)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServer(log, repoMock, revMock, diffMock, chkMock)
	return srv, repoMock, revMock, diffMock, chkMock
}

func TestListRepository(t *testing.T) {
	srv, repoMock, _, _, _ := newTestServer()

	want := []api.Repository{{Id: 1, Slug: "mozilla-central", Url: "https://hg.mozilla.org/mozilla-central", Kind: "source", CreatedAt: time.Now()}}
	repoMock.On("List", mock.Anything, defaultLimit, 0).Return(want, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/repository/", nil)
	rr := httptest.NewRecorder()

	srv.Routes().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	repoMock.AssertExpectations(t)
}

func TestGetDiff_NotFound(t *testing.T) {
	srv, _, _, diffMock, _ := newTestServer()

	diffMock.On("Get", mock.Anything, 42).Return(nil, apperrors.ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "/v1/diff/42/", nil)
	rr := httptest.NewRecorder()

	srv.Routes().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	diffMock.AssertExpectations(t)
}

func TestListDiff_FiltersByIssuesParam(t *testing.T) {
	srv, _, _, diffMock, _ := newTestServer()

	diffMock.On("List", mock.Anything, repository.ListFilter{
		Repository: "mozilla-central",
		Issues:     "publishable",
		Limit:      defaultLimit,
	}).Return([]api.Diff{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/diff/?repository=mozilla-central&issues=publishable", nil)
	rr := httptest.NewRecorder()

	srv.Routes().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	diffMock.AssertExpectations(t)
}

func TestGetCheck_PublishableOnly(t *testing.T) {
	srv, _, _, _, chkMock := newTestServer()

	chkMock.On("List", mock.Anything, "mozilla-central", "clang-tidy", "bugprone-use-after-move", true, defaultLimit, 0).
		Return([]api.Issue{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/check/mozilla-central/clang-tidy/bugprone-use-after-move/?publishable=true", nil)
	rr := httptest.NewRecorder()

	srv.Routes().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	chkMock.AssertExpectations(t)
}

func TestGetCheckStats_InvalidSince(t *testing.T) {
	srv, _, _, _, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/v1/check/stats/?since=not-a-date", nil)
	rr := httptest.NewRecorder()

	srv.Routes().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
