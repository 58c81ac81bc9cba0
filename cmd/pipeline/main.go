// Command pipeline is the harness entrypoint spec.md §6 describes: given a
// CI task group, run ingestion, parsing, classification and reporting for
// one review task. Translating an external build notification into
// (task_group_id, review_task_id, repository, revision, diff, patch) and
// retrieving secrets by name are out of scope (spec.md §1); this command
// reads them from the environment/configuration it is handed and returns
// an explicit error for --taskcluster-secret.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/google/go-github/v68/github"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/mozilla/code-review/internal/apperrors"
	backendwriter "github.com/mozilla/code-review/internal/backend"
	"github.com/mozilla/code-review/internal/config"
	"github.com/mozilla/code-review/internal/domain"
	"github.com/mozilla/code-review/internal/ingestion"
	"github.com/mozilla/code-review/internal/ingestion/taskcluster"
	"github.com/mozilla/code-review/internal/pipeline"
	"github.com/mozilla/code-review/internal/repository/postgres"
	"github.com/mozilla/code-review/internal/reporters"
	"github.com/mozilla/code-review/internal/reporters/builderror"
	"github.com/mozilla/code-review/internal/reporters/email"
	"github.com/mozilla/code-review/internal/reporters/platform"
	"github.com/mozilla/code-review/pkg/logger/sl"
	"github.com/mozilla/code-review/pkg/logger/slogpretty"
)

var (
	configurationPath string
	taskclusterSecret string
)

func main() {
	root := &cobra.Command{
		Use:           "pipeline",
		Short:         "Run the code-review publication pipeline for one review task",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runPipeline,
	}
	root.Flags().StringVar(&configurationPath, "configuration", "", "path to the pipeline configuration document")
	root.Flags().StringVar(&taskclusterSecret, "taskcluster-secret", "", "name of a secret holding the configuration document (not implemented)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a run's terminal error to spec.md §6's exit code
// contract: 0 success, 1 fatal configuration error, 2 unrecoverable
// ingestion error, 3 deadline exceeded.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, apperrors.ErrIngestFatal):
		return 2
	case errors.Is(err, apperrors.ErrDeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return 3
	default:
		return 1
	}
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	if taskclusterSecret != "" {
		return fmt.Errorf("--taskcluster-secret %q: not implemented; wire an external loader", taskclusterSecret)
	}

	taskGroupID := os.Getenv("TRY_TASK_GROUP_ID")
	reviewTaskID := os.Getenv("TRY_TASK_ID")
	if taskGroupID == "" || reviewTaskID == "" {
		return errors.New("TRY_TASK_GROUP_ID and TRY_TASK_ID must both be set")
	}

	cfg, err := config.Load(configurationPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Pipeline.CIBaseURL == "" {
		return errors.New("pipeline.ci_base_url must be set")
	}

	log := slogpretty.SetupLogger(string(cfg.AppChannel))
	log.Info("starting pipeline run", "task_group_id", taskGroupID, "review_task_id", reviewTaskID)

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Pipeline.Deadline)
	defer cancel()

	db, err := postgres.NewDB(cfg.Postgres, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.DB().Close() }()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer func() { _ = rdb.Close() }()

	client, err := taskcluster.New(taskcluster.Config{BaseURL: cfg.Pipeline.CIBaseURL})
	if err != nil {
		return fmt.Errorf("build ingestion client: %w", err)
	}

	writer := buildBackendWriter(db.DB(), log)

	otherReporters, err := buildOtherReporters(cfg, rdb)
	if err != nil {
		return fmt.Errorf("build reporters: %w", err)
	}

	run := pipeline.New(log, client,
		pipeline.NewHashCache(rdb, time.Minute),
		pipeline.NewRevisionLock(rdb, 5*time.Minute),
		cfg.Pipeline.IngestConcurrency, cfg.Pipeline.ParseQueueSize, cfg.Pipeline.WorkDir,
		writerReporter{writer: writer}, otherReporters, writer.PriorHashes,
	)

	diffRepo := postgres.NewDiffRepository(db.DB(), log)
	in, err := resolveInput(ctx, client, diffRepo, log, taskGroupID, reviewTaskID)
	if err != nil {
		return fmt.Errorf("resolve run input: %w", err)
	}

	if err := run.Execute(ctx, *in); err != nil {
		log.Error("pipeline run failed", sl.Err(err))
		return err
	}
	log.Info("pipeline run complete")
	return nil
}

// writerReporter adapts backendwriter.Writer (which the hash-cache loader
// also needs directly, via PriorHashes) to reporters.Reporter, so the run
// only carries one concrete backend dependency.
type writerReporter struct {
	writer *backendwriter.Writer
}

func (w writerReporter) Name() string { return "backend" }
func (w writerReporter) Report(ctx context.Context, r reporters.Report) error {
	return w.writer.WriteDiff(ctx, r.Repository, r.Revision, r.Diff, r.Issues)
}

func buildBackendWriter(db *sqlx.DB, log *slog.Logger) *backendwriter.Writer {
	repoRepo := postgres.NewRepositoryRepository(db, log)
	revRepo := postgres.NewRevisionRepository(db, log)
	diffRepo := postgres.NewDiffRepository(db, log)
	issueRepo := postgres.NewIssueRepository(db, log)
	issueLinkRepo := postgres.NewIssueLinkRepository(db, log)
	return backendwriter.NewWriter(db, log, repoRepo, revRepo, diffRepo, issueRepo, issueLinkRepo)
}

// buildOtherReporters constructs the configured platform/email/build_error
// reporters (spec.md §4.4); the backend reporter is always run separately
// and first, per reporters.Dispatch.
func buildOtherReporters(cfg *config.Config, rdb *redis.Client) ([]reporters.Reporter, error) {
	status := pipeline.NewPublishStatus(rdb)
	var out []reporters.Reporter

	for _, rc := range cfg.Pipeline.Reporters {
		switch rc.Kind {
		case config.ReporterKindBackend:
			// handled separately; listing it here would run it twice.
			continue
		case config.ReporterKindPlatform:
			opts := []platform.Option{platform.WithSkippedAnalyzers(rc.AnalyzersSkipped)}
			if rc.Credentials != "" {
				gh := github.NewClient(nil).WithAuthToken(rc.Credentials)
				opts = append(opts, platform.WithGitHub(gh, rc.URL))

				gl, err := gitlab.NewClient(rc.Credentials)
				if err != nil {
					return nil, fmt.Errorf("build gitlab client: %w", err)
				}
				opts = append(opts, platform.WithGitLab(gl, rc.URL))
			}
			out = append(out, markPublishedReporter{Reporter: platform.New(status, opts...), status: status})
		case config.ReporterKindEmail:
			out = append(out, email.New("localhost:25", nil, "code-review@mozilla.org", rc.Emails))
		case config.ReporterKindBuildError:
			fallback := ""
			if len(rc.Emails) > 0 {
				fallback = rc.Emails[0]
			}
			out = append(out, builderror.New("localhost:25", nil, "code-review@mozilla.org", staticAuthorResolver{fallback: fallback}))
		default:
			return nil, fmt.Errorf("unknown reporter kind %q", rc.Kind)
		}
	}
	return out, nil
}

// markPublishedReporter records a diff as published once its wrapped
// Report call succeeds, so PublishStatus.IsTerminal makes a retried run's
// platform reporter a no-op instead of double-posting.
type markPublishedReporter struct {
	reporters.Reporter
	status *pipeline.PublishStatus
}

func (m markPublishedReporter) Report(ctx context.Context, r reporters.Report) error {
	if err := m.Reporter.Report(ctx, r); err != nil {
		return err
	}
	return m.status.MarkPublished(ctx, r.Diff)
}

// staticAuthorResolver is the minimal AuthorResolver the build-error
// reporter needs; resolving a revision's real author address is an
// external-system lookup out of scope per spec.md §1, so every revision
// is routed to the reporter's configured fallback address.
type staticAuthorResolver struct {
	fallback string
}

func (s staticAuthorResolver) AuthorEmail(_ context.Context, _ domain.Revision) (string, error) {
	if s.fallback == "" {
		return "", errors.New("no build-error fallback address configured")
	}
	return s.fallback, nil
}

// resolveInput builds the Run.Input from the decision task's metadata.
// Translating a full CI build notification into repository/revision/diff
// identity is out of scope (spec.md §1); this derives the minimum viable
// shape from task tags, matching the fields the backend reporter needs to
// persist by natural key. Patch retrieval against a repository checkout
// is likewise out of scope: the patch is left empty, so every issue is
// classified as out-of-patch unless a future harness attaches one.
func resolveInput(ctx context.Context, client ingestion.Client, diffRepo *postgres.DiffRepository, log *slog.Logger, taskGroupID, reviewTaskID string) (*pipeline.Input, error) {
	task, err := client.GetTask(ctx, reviewTaskID)
	if err != nil {
		return nil, fmt.Errorf("get review task %s: %w", reviewTaskID, err)
	}

	repoSlug := task.Tags["repository"]
	if repoSlug == "" {
		return nil, fmt.Errorf("review task %s has no repository tag", reviewTaskID)
	}
	provider := domain.Provider(task.Tags["provider"])
	if provider == "" {
		provider = domain.ProviderPullRequest
	}
	providerDiffID, _ := strconv.Atoi(task.Tags["diff_id"])

	log.Debug("resolved decision task tags", "repository", repoSlug, "provider", provider)

	diff := domain.Diff{
		ProviderDiffID: providerDiffID,
		CommitHash:     task.Tags["revision"],
		ReviewTaskID:   reviewTaskID,
	}
	if existing, err := diffRepo.GetByReviewTaskID(ctx, reviewTaskID); err == nil {
		diff.ID = existing.ID
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("look up existing diff: %w", err)
	}

	return &pipeline.Input{
		TaskGroupID:  taskGroupID,
		ReviewTaskID: reviewTaskID,
		Repository: domain.Repository{
			Slug: repoSlug,
			URL:  task.Tags["repository_url"],
			Kind: domain.RepositoryKindSource,
		},
		Revision: domain.Revision{
			ProviderID: task.Tags["revision"],
			Provider:   provider,
			Title:      task.Tags["revision_title"],
		},
		Diff:  diff,
		Patch: nil,
	}, nil
}
