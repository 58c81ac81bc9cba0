// Package api holds the DTOs and routing glue that an
// oapi-codegen/oapi-codegen/v2 generation pass against swagger/openapi.yaml
// would produce for this service. It is hand-authored (see DESIGN.md) but
// kept in the shape the generator emits: plain DTO structs, a
// ServerInterface the transport layer implements, and a Handler function
// that mounts chi routes with oapi-codegen/runtime param binding.
package api

import "time"

// Repository is the wire representation of domain.Repository.
type Repository struct {
	Id        int       `json:"id"`
	Slug      string    `json:"slug"`
	Url       string    `json:"url"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// Revision is the wire representation of domain.Revision.
type Revision struct {
	Id               int       `json:"id"`
	ProviderId       string    `json:"provider_id"`
	Provider         string    `json:"provider"`
	Title            string    `json:"title"`
	BugId            *int      `json:"bug_id,omitempty"`
	BaseRepositoryId int       `json:"base_repository_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// Diff is the wire representation of domain.Diff, plus the issues_url
// spec.md §6 requires on the single-resource view.
type Diff struct {
	Id             int       `json:"id"`
	RevisionId     int       `json:"revision_id"`
	ProviderDiffId int       `json:"provider_diff_id"`
	CommitHash     string    `json:"commit_hash"`
	ReviewTaskId   string    `json:"review_task_id"`
	RepositoryId   int       `json:"repository_id"`
	CreatedAt      time.Time `json:"created_at"`
	IssuesUrl      string    `json:"issues_url,omitempty"`
}

// Issue is the wire representation of domain.Issue.
type Issue struct {
	Id        int       `json:"id"`
	Hash      string    `json:"hash"`
	Path      string    `json:"path"`
	Line      int       `json:"line"`
	NbLines   int       `json:"nb_lines"`
	Check     string    `json:"check"`
	Analyzer  string    `json:"analyzer"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Body      *string   `json:"body,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CheckStat is one row of GET /v1/check/stats/.
type CheckStat struct {
	Repository  string `json:"repository"`
	Analyzer    string `json:"analyzer"`
	Check       string `json:"check"`
	Total       int    `json:"total"`
	Publishable int    `json:"publishable"`
}

// CheckHistoryPoint is one row of GET /v1/check/history/.
type CheckHistoryPoint struct {
	Date  time.Time `json:"date"`
	Total int       `json:"total"`
}

// Page wraps any list response with the offset/limit pagination metadata
// every list endpoint in spec.md §6 shares.
type Page[T any] struct {
	Results []T  `json:"results"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Next    *int `json:"next,omitempty"`
}

// ErrorResponseErrorCode enumerates the machine-readable error codes the
// backend returns alongside a human-readable message.
type ErrorResponseErrorCode string

const (
	NOTFOUND        ErrorResponseErrorCode = "NOT_FOUND"
	INVALIDREQUEST  ErrorResponseErrorCode = "INVALID_REQUEST"
	VALIDATIONERROR ErrorResponseErrorCode = "VALIDATION_ERROR"
)

// ErrorResponse is the JSON body for non-2xx responses.
type ErrorResponse struct {
	Error struct {
		Code    ErrorResponseErrorCode `json:"code"`
		Message string                 `json:"message"`
	} `json:"error"`
}

// ListRepositoryParams binds GET /v1/repository/ query parameters.
type ListRepositoryParams struct {
	Limit  *int `form:"limit,omitempty" json:"limit,omitempty"`
	Offset *int `form:"offset,omitempty" json:"offset,omitempty"`
}

// ListDiffParams binds GET /v1/diff/ query parameters (spec.md §6).
type ListDiffParams struct {
	Search     *string `form:"search,omitempty" json:"search,omitempty"`
	Repository *string `form:"repository,omitempty" json:"repository,omitempty"`
	Issues     *string `form:"issues,omitempty" json:"issues,omitempty"`
	Limit      *int    `form:"limit,omitempty" json:"limit,omitempty"`
	Offset     *int    `form:"offset,omitempty" json:"offset,omitempty"`
}

// ListDiffIssuesParams binds GET /v1/diff/{id}/issues/ query parameters.
type ListDiffIssuesParams struct {
	Limit  *int `form:"limit,omitempty" json:"limit,omitempty"`
	Offset *int `form:"offset,omitempty" json:"offset,omitempty"`
}

// ListRevisionDiffsParams binds GET /v1/revision/{id}/diffs/ query parameters.
type ListRevisionDiffsParams struct {
	Limit  *int `form:"limit,omitempty" json:"limit,omitempty"`
	Offset *int `form:"offset,omitempty" json:"offset,omitempty"`
}

// GetCheckParams binds GET /v1/check/{repository}/{analyzer}/{check}/.
type GetCheckParams struct {
	Publishable *bool `form:"publishable,omitempty" json:"publishable,omitempty"`
	Limit       *int  `form:"limit,omitempty" json:"limit,omitempty"`
	Offset      *int  `form:"offset,omitempty" json:"offset,omitempty"`
}

// GetCheckStatsParams binds GET /v1/check/stats/.
type GetCheckStatsParams struct {
	Since *string `form:"since,omitempty" json:"since,omitempty"`
}

// GetCheckHistoryParams binds GET /v1/check/history/.
type GetCheckHistoryParams struct {
	Repository *string `form:"repository,omitempty" json:"repository,omitempty"`
	Analyzer   *string `form:"analyzer,omitempty" json:"analyzer,omitempty"`
	Check      *string `form:"check,omitempty" json:"check,omitempty"`
	Since      *string `form:"since,omitempty" json:"since,omitempty"`
}
