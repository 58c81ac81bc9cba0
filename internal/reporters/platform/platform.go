// Package platform is the code-review platform reporter of spec.md §4.4:
// it posts a summary comment plus one inline finding per publishable
// issue, bound to either a pull-request platform (GitHub) or a
// code-review platform (GitLab) client depending on Revision.Provider.
package platform

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/go-github/v68/github"
	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/mozilla/code-review/internal/apperrors"
	"github.com/mozilla/code-review/internal/classify"
	"github.com/mozilla/code-review/internal/domain"
	"github.com/mozilla/code-review/internal/reporters"
)

// BuildStatusChecker reports whether a review platform build object for a
// diff is already terminal (pass/fail); if so the reporter must not create
// a second build or comment.
type BuildStatusChecker interface {
	IsTerminal(ctx context.Context, diff domain.Diff) (bool, error)
}

// Finding is one inline annotation posted on the review platform.
type Finding struct {
	Path        string
	Line        int
	Code        string
	Severity    domain.Level
	Name        string
	Description string
}

type Reporter struct {
	status        BuildStatusChecker
	gh            *github.Client
	ghOwnerRepo   string // "owner/repo"
	gl            *gitlab.Client
	glProjectPath string
	skipAnalyzers map[string]bool
}

type Option func(*Reporter)

func WithGitHub(client *github.Client, ownerRepo string) Option {
	return func(r *Reporter) { r.gh = client; r.ghOwnerRepo = ownerRepo }
}

func WithGitLab(client *gitlab.Client, projectPath string) Option {
	return func(r *Reporter) { r.gl = client; r.glProjectPath = projectPath }
}

func WithSkippedAnalyzers(analyzers []string) Option {
	return func(r *Reporter) {
		r.skipAnalyzers = make(map[string]bool, len(analyzers))
		for _, a := range analyzers {
			r.skipAnalyzers[a] = true
		}
	}
}

func New(status BuildStatusChecker, opts ...Option) *Reporter {
	r := &Reporter{status: status}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Reporter) Name() string { return "platform" }

func (r *Reporter) Report(ctx context.Context, rep reporters.Report) error {
	terminal, err := r.status.IsTerminal(ctx, rep.Diff)
	if err != nil {
		return fmt.Errorf("check build status: %w", err)
	}
	if terminal {
		return apperrors.ErrAlreadyPublished
	}

	findings := buildFindings(rep.Issues, r.skipAnalyzers)
	summary := summarize(rep.Issues)

	switch rep.Revision.Provider {
	case domain.ProviderPullRequest:
		return r.reportGitHub(ctx, rep, summary, findings)
	case domain.ProviderCodeReview:
		return r.reportGitLab(ctx, rep, summary, findings)
	default:
		return fmt.Errorf("unsupported provider %q", rep.Revision.Provider)
	}
}

func buildFindings(issues []classify.ClassifiedIssue, skip map[string]bool) []Finding {
	var out []Finding
	for _, i := range issues {
		if !i.Publishable {
			continue
		}
		if skip[i.Analyzer] {
			continue
		}
		line := 0
		if i.Line != nil {
			line = *i.Line
		}
		out = append(out, Finding{
			Path:        i.Path,
			Line:        line,
			Code:        i.Check,
			Severity:    i.Level,
			Name:        i.Analyzer,
			Description: i.Message,
		})
	}
	return out
}

func summarize(issues []classify.ClassifiedIssue) string {
	counts := map[string]map[domain.Level]int{}
	for _, i := range issues {
		if counts[i.Analyzer] == nil {
			counts[i.Analyzer] = map[domain.Level]int{}
		}
		counts[i.Analyzer][i.Level]++
	}

	var b strings.Builder
	b.WriteString("## Code review summary\n\n")
	for analyzer, byLevel := range counts {
		fmt.Fprintf(&b, "- %s: %d error(s), %d warning(s)\n",
			analyzer, byLevel[domain.LevelError], byLevel[domain.LevelWarning])
	}
	return b.String()
}

func (r *Reporter) reportGitHub(ctx context.Context, rep reporters.Report, summary string, findings []Finding) error {
	if r.gh == nil {
		return fmt.Errorf("github client not configured")
	}
	parts := strings.SplitN(r.ghOwnerRepo, "/", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid owner/repo %q", r.ghOwnerRepo)
	}
	prNumber, err := strconv.Atoi(rep.Revision.ProviderID)
	if err != nil {
		return fmt.Errorf("revision provider id %q is not a PR number: %w", rep.Revision.ProviderID, err)
	}

	if _, _, err := r.gh.Issues.CreateComment(ctx, parts[0], parts[1], prNumber, &github.IssueComment{
		Body: &summary,
	}); err != nil {
		return fmt.Errorf("post github summary comment: %w", err)
	}

	for _, f := range findings {
		body := fmt.Sprintf("**%s** (%s): %s", f.Name, f.Code, f.Description)
		comment := &github.PullRequestComment{
			Path: &f.Path,
			Line: intPtr(f.Line),
			Body: &body,
		}
		if _, _, err := r.gh.PullRequests.CreateComment(ctx, parts[0], parts[1], prNumber, comment); err != nil {
			return fmt.Errorf("post github inline finding for %s:%d: %w", f.Path, f.Line, err)
		}
	}
	return nil
}

func (r *Reporter) reportGitLab(ctx context.Context, rep reporters.Report, summary string, findings []Finding) error {
	if r.gl == nil {
		return fmt.Errorf("gitlab client not configured")
	}

	if _, _, err := r.gl.Notes.CreateMergeRequestNote(r.glProjectPath, int64(rep.Diff.ProviderDiffID), &gitlab.CreateMergeRequestNoteOptions{
		Body: &summary,
	}, gitlab.WithContext(ctx)); err != nil {
		return fmt.Errorf("post gitlab summary note: %w", err)
	}

	for _, f := range findings {
		body := fmt.Sprintf("**%s** (%s): %s", f.Name, f.Code, f.Description)
		line := int64(f.Line)
		opts := &gitlab.CreateMergeRequestDiscussionOptions{
			Body: &body,
			Position: &gitlab.PositionOptions{
				PositionType: gitlab.Ptr("text"),
				NewPath:      &f.Path,
				NewLine:      &line,
				BaseSHA:      &rep.Diff.CommitHash,
				StartSHA:     &rep.Diff.CommitHash,
				HeadSHA:      &rep.Diff.CommitHash,
			},
		}
		if _, _, err := r.gl.Discussions.CreateMergeRequestDiscussion(r.glProjectPath, int64(rep.Diff.ProviderDiffID), opts, gitlab.WithContext(ctx)); err != nil {
			return fmt.Errorf("post gitlab inline finding for %s:%d: %w", f.Path, f.Line, err)
		}
	}
	return nil
}

func intPtr(v int) *int { return &v }
