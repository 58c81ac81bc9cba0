// Package pipeline orchestrates one run end-to-end: ingestion, per-task
// analyzer parsing, classification, aggregation, and reporter dispatch.
// One Run processes exactly one (task_group_id, review_task_id); multiple
// Runs may execute concurrently but share no mutable state (spec.md §5).
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/mozilla/code-review/internal/analyzer"
	"github.com/mozilla/code-review/internal/apperrors"
	"github.com/mozilla/code-review/internal/classify"
	"github.com/mozilla/code-review/internal/domain"
	"github.com/mozilla/code-review/internal/ingestion"
	"github.com/mozilla/code-review/internal/patch"
	"github.com/mozilla/code-review/internal/reporters"
	"github.com/mozilla/code-review/pkg/logger/sl"
)

// Input is everything one run needs that the out-of-scope harness (spec.md
// §1) is responsible for producing.
type Input struct {
	TaskGroupID  string
	ReviewTaskID string
	Repository   domain.Repository
	Revision     domain.Revision
	Diff         domain.Diff
	Patch        []byte // unified diff from the external patch-applier
}

type Run struct {
	log               *slog.Logger
	client            ingestion.Client
	hashCache         *HashCache
	lock              *RevisionLock
	ingestConcurrency int
	parseQueueSize    int
	workDir           string

	backendReporter reporters.Reporter
	otherReporters  []reporters.Reporter

	priorHashLoader Loader
}

func New(log *slog.Logger, client ingestion.Client, hashCache *HashCache, lock *RevisionLock,
	ingestConcurrency, parseQueueSize int, workDir string,
	backendReporter reporters.Reporter, otherReporters []reporters.Reporter, priorHashLoader Loader) *Run {
	if ingestConcurrency < 1 {
		ingestConcurrency = 8
	}
	if parseQueueSize < 1 {
		parseQueueSize = 64
	}
	return &Run{
		log:               log,
		client:            client,
		hashCache:         hashCache,
		lock:              lock,
		ingestConcurrency: ingestConcurrency,
		parseQueueSize:    parseQueueSize,
		workDir:           workDir,
		backendReporter:   backendReporter,
		otherReporters:    otherReporters,
		priorHashLoader:   priorHashLoader,
	}
}

type taskResult struct {
	taskID string
	issues []classify.ClassifiedIssue
}

// Execute runs the four layers of spec.md §2 against in, returning an
// apperrors-tagged error on fatal failure. On success it writes
// report.json, one issues-<analyzer>.json per analyzer and summary.md to
// the working directory (§6) and dispatches reporters.
func (r *Run) Execute(ctx context.Context, in Input) error {
	var release func(context.Context) error
	if r.lock != nil {
		var err error
		release, err = r.lock.Acquire(ctx, in.Revision.ProviderID)
		if err != nil {
			return fmt.Errorf("acquire revision lock: %w", err)
		}
		defer func() {
			if release != nil {
				_ = release(context.WithoutCancel(ctx))
			}
		}()
	}

	p, err := patch.Parse(in.Patch)
	if err != nil {
		return fmt.Errorf("parse patch: %w", err)
	}

	var priorHashes map[string]struct{}
	if r.hashCache != nil && r.priorHashLoader != nil {
		priorHashes, err = r.hashCache.Get(ctx, in.Revision.ProviderID, r.priorHashLoader)
		if err != nil {
			r.log.Warn("prior hash lookup failed, treating all issues as new", sl.Err(err))
		}
	}

	refs, errc := r.client.ListGroup(ctx, in.TaskGroupID)

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(r.ingestConcurrency))
	results := make(chan taskResult, r.parseQueueSize)
	states := newStateTracker()

	g.Go(func() error {
		defer close(results)
		inner, innerCtx := errgroup.WithContext(gctx)
		for ref := range refs {
			ref := ref
			if err := sem.Acquire(innerCtx, 1); err != nil {
				return err
			}
			states.start(ref.TaskID)
			inner.Go(func() error {
				defer sem.Release(1)
				issues := r.processTask(innerCtx, ref, in.Repository.Slug, p, priorHashes, states)
				select {
				case results <- taskResult{taskID: ref.TaskID, issues: issues}:
				case <-innerCtx.Done():
					return innerCtx.Err()
				}
				return nil
			})
		}
		return inner.Wait()
	})

	var all []classify.ClassifiedIssue
	collectDone := make(chan struct{})
	go func() {
		defer close(collectDone)
		for res := range results {
			all = append(all, res.issues...)
		}
	}()

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: ingestion/parsing: %v", apperrors.ErrDeadlineExceeded, err)
		}
		return fmt.Errorf("%w: ingestion/parsing: %v", apperrors.ErrIngestFatal, err)
	}
	<-collectDone

	if fatalErr := <-errc; fatalErr != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrDeadlineExceeded, fatalErr)
		}
		return fatalErr
	}

	if ctx.Err() != nil {
		return fmt.Errorf("%w", apperrors.ErrDeadlineExceeded)
	}

	final := classify.Aggregate(all)

	if err := r.persistArtifacts(in, final); err != nil {
		r.log.Warn("failed to persist run artifacts", sl.Err(err))
	}

	rep := reporters.Report{
		Repository: in.Repository,
		Revision:   in.Revision,
		Diff:       in.Diff,
		Issues:     final,
	}
	return reporters.Dispatch(ctx, r.log, r.backendReporter, r.otherReporters, rep)
}

// processTask drives one task through ingestion + parsing + classification,
// converting any failure into a synthetic publishable issue rather than
// propagating it (spec.md §4.3/§7).
func (r *Run) processTask(ctx context.Context, ref ingestion.TaskRef, repoSlug string, p *patch.Patch,
	priorHashes map[string]struct{}, states *stateTracker) []classify.ClassifiedIssue {

	task, err := r.client.GetTask(ctx, ref.TaskID)
	if err != nil {
		states.fail(ref.TaskID)
		return []classify.ClassifiedIssue{classify.Synthetic("task-missing", err.Error())}
	}
	states.advance(ref.TaskID, classify.StatusIngested)

	if !task.State.Terminal() {
		return nil
	}

	artifactPath := defaultArtifactPath(task.Name)
	data, err := r.client.GetArtifact(ctx, ref.TaskID, task.RunID, artifactPath)
	if err != nil {
		states.fail(ref.TaskID)
		return []classify.ClassifiedIssue{classify.Synthetic("artifact-missing", fmt.Sprintf("task %s: %v", task.Name, err))}
	}
	states.advance(ref.TaskID, classify.StatusParsed)

	raws, diags, err := analyzer.Parse(task.Name, data)
	for _, d := range diags {
		r.log.Debug("parser diagnostic", "task", task.Name, "reason", d.Reason)
	}
	if err != nil {
		states.fail(ref.TaskID)
		return []classify.ClassifiedIssue{classify.Synthetic("parse-error", fmt.Sprintf("task %s: %v", task.Name, err))}
	}

	out := make([]classify.ClassifiedIssue, 0, len(raws))
	for _, raw := range raws {
		out = append(out, classify.Classify(raw, repoSlug, p, priorHashes))
	}
	states.advance(ref.TaskID, classify.StatusClassified)
	states.advance(ref.TaskID, classify.StatusAggregated)
	return out
}

func defaultArtifactPath(taskName string) string {
	switch analyzer.Dispatch(taskName) {
	case analyzer.KindClangFormat:
		return "public/code-review/clang-format.diff"
	default:
		return "public/code-review/issues.json"
	}
}

func (r *Run) persistArtifacts(in Input, issues []classify.ClassifiedIssue) error {
	if err := os.MkdirAll(r.workDir, 0o755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}

	reportPath := filepath.Join(r.workDir, "report.json")
	reportBytes, err := json.MarshalIndent(issues, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(reportPath, reportBytes, 0o644); err != nil {
		return fmt.Errorf("write report.json: %w", err)
	}

	byAnalyzer := map[string][]classify.ClassifiedIssue{}
	for _, i := range issues {
		byAnalyzer[i.Analyzer] = append(byAnalyzer[i.Analyzer], i)
	}
	for name, group := range byAnalyzer {
		b, err := json.MarshalIndent(group, "", "  ")
		if err != nil {
			continue
		}
		_ = os.WriteFile(filepath.Join(r.workDir, fmt.Sprintf("issues-%s.json", sanitize(name))), b, 0o644)
	}

	var summary strings.Builder
	fmt.Fprintf(&summary, "# Code review summary for %s\n\n", in.Revision.Title)
	fmt.Fprintf(&summary, "%d issue(s) found.\n", len(issues))
	if err := os.WriteFile(filepath.Join(r.workDir, "summary.md"), []byte(summary.String()), 0o644); err != nil {
		return fmt.Errorf("write summary.md: %w", err)
	}

	return nil
}

func sanitize(name string) string {
	return strings.NewReplacer("/", "-", " ", "-").Replace(name)
}
