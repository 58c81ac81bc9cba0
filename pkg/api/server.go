package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface is the set of handlers the generated router dispatches
// to — implemented by internal/transport/http.Server.
type ServerInterface interface {
	ListRepository(w http.ResponseWriter, r *http.Request, params ListRepositoryParams)
	ListDiff(w http.ResponseWriter, r *http.Request, params ListDiffParams)
	GetDiff(w http.ResponseWriter, r *http.Request, id int)
	ListDiffIssues(w http.ResponseWriter, r *http.Request, id int, params ListDiffIssuesParams)
	GetRevision(w http.ResponseWriter, r *http.Request, id int)
	ListRevisionDiffs(w http.ResponseWriter, r *http.Request, id int, params ListRevisionDiffsParams)
	GetCheck(w http.ResponseWriter, r *http.Request, repository string, analyzer string, check string, params GetCheckParams)
	GetCheckStats(w http.ResponseWriter, r *http.Request, params GetCheckStatsParams)
	GetCheckHistory(w http.ResponseWriter, r *http.Request, params GetCheckHistoryParams)
}

// Handler mounts si's handlers on a chi router under the routes spec.md §6
// names. Integer path parameters are bound with oapi-codegen/runtime as
// generated server code would; query parameters are read from the URL
// query and integers decoded with strconv.
func Handler(si ServerInterface) http.Handler {
	r := chi.NewRouter()

	r.Get("/v1/repository/", func(w http.ResponseWriter, r *http.Request) {
		var params ListRepositoryParams
		if !bindIntParam(w, r, "limit", &params.Limit) || !bindIntParam(w, r, "offset", &params.Offset) {
			return
		}
		si.ListRepository(w, r, params)
	})

	r.Get("/v1/diff/", func(w http.ResponseWriter, r *http.Request) {
		var params ListDiffParams
		if s := r.URL.Query().Get("search"); s != "" {
			params.Search = &s
		}
		if s := r.URL.Query().Get("repository"); s != "" {
			params.Repository = &s
		}
		if s := r.URL.Query().Get("issues"); s != "" {
			params.Issues = &s
		}
		if !bindIntParam(w, r, "limit", &params.Limit) || !bindIntParam(w, r, "offset", &params.Offset) {
			return
		}
		si.ListDiff(w, r, params)
	})

	r.Get("/v1/diff/{id}/", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathInt(w, r, "id")
		if !ok {
			return
		}
		si.GetDiff(w, r, id)
	})

	r.Get("/v1/diff/{id}/issues/", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathInt(w, r, "id")
		if !ok {
			return
		}
		var params ListDiffIssuesParams
		if !bindIntParam(w, r, "limit", &params.Limit) || !bindIntParam(w, r, "offset", &params.Offset) {
			return
		}
		si.ListDiffIssues(w, r, id, params)
	})

	r.Get("/v1/revision/{id}/", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathInt(w, r, "id")
		if !ok {
			return
		}
		si.GetRevision(w, r, id)
	})

	r.Get("/v1/revision/{id}/diffs/", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathInt(w, r, "id")
		if !ok {
			return
		}
		var params ListRevisionDiffsParams
		if !bindIntParam(w, r, "limit", &params.Limit) || !bindIntParam(w, r, "offset", &params.Offset) {
			return
		}
		si.ListRevisionDiffs(w, r, id, params)
	})

	r.Get("/v1/check/{repository}/{analyzer}/{check}/", func(w http.ResponseWriter, r *http.Request) {
		var params GetCheckParams
		if s := r.URL.Query().Get("publishable"); s != "" {
			if v, err := strconv.ParseBool(s); err == nil {
				params.Publishable = &v
			}
		}
		if !bindIntParam(w, r, "limit", &params.Limit) || !bindIntParam(w, r, "offset", &params.Offset) {
			return
		}
		si.GetCheck(w, r, chi.URLParam(r, "repository"), chi.URLParam(r, "analyzer"), chi.URLParam(r, "check"), params)
	})

	r.Get("/v1/check/stats/", func(w http.ResponseWriter, r *http.Request) {
		var params GetCheckStatsParams
		if s := r.URL.Query().Get("since"); s != "" {
			params.Since = &s
		}
		si.GetCheckStats(w, r, params)
	})

	r.Get("/v1/check/history/", func(w http.ResponseWriter, r *http.Request) {
		var params GetCheckHistoryParams
		q := r.URL.Query()
		if s := q.Get("repository"); s != "" {
			params.Repository = &s
		}
		if s := q.Get("analyzer"); s != "" {
			params.Analyzer = &s
		}
		if s := q.Get("check"); s != "" {
			params.Check = &s
		}
		if s := q.Get("since"); s != "" {
			params.Since = &s
		}
		si.GetCheckHistory(w, r, params)
	})

	return r
}

// pathInt binds a chi URL param with oapi-codegen/runtime's style of
// strict, typed path-parameter decoding.
func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	var v int
	if err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v,
		runtime.BindStyledParameterOptions{Explode: false, Required: true}); err != nil {
		http.Error(w, "invalid path parameter "+name, http.StatusBadRequest)
		return 0, false
	}
	return v, true
}

// bindIntParam decodes an optional integer query parameter into *int,
// leaving it nil when absent.
func bindIntParam(w http.ResponseWriter, r *http.Request, name string, dst **int) bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		http.Error(w, "invalid query parameter "+name, http.StatusBadRequest)
		return false
	}
	*dst = &v
	return true
}
