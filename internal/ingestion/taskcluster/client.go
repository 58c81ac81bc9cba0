// Package taskcluster is the concrete ingestion.Client binding against a
// Taskcluster-shaped CI API: task-group listing, task status, and artifact
// download, decorated with retry/backoff and per-host rate limiting.
package taskcluster

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/mozilla/code-review/internal/apperrors"
	"github.com/mozilla/code-review/internal/ingestion"
)

// Config tunes the client's retry and rate-limit behavior. Defaults match
// SPEC_FULL.md §4.1: ≤5 attempts, backoff 1s·2^k ±25% jitter.
type Config struct {
	BaseURL     string
	MaxRetries  int
	RateLimit   rate.Limit
	RateBurst   int
}

type Client struct {
	baseURL *url.URL
	http    *retryablehttp.Client
	limiter *rate.Limiter
}

func New(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	// MaxRetries counts retries after the first attempt: 4 retries make
	// the 5 attempts of the default policy.
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 4
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = maxRetries
	rc.Backoff = backoffWithJitter
	rc.CheckRetry = checkRetry
	rc.Logger = nil
	rc.HTTPClient.Transport = &http.Transport{MaxConnsPerHost: 64}

	limit := cfg.RateLimit
	if limit == 0 {
		limit = rate.Limit(10)
	}
	burst := cfg.RateBurst
	if burst == 0 {
		burst = 10
	}

	return &Client{
		baseURL: base,
		http:    rc,
		limiter: rate.NewLimiter(limit, burst),
	}, nil
}

// backoffWithJitter implements 1s·2^k ±25% jitter, matching spec.md §4.1.
func backoffWithJitter(minD, maxD time.Duration, attemptNum int, resp *http.Response) time.Duration {
	base := time.Second << attemptNum
	if base > maxD {
		base = maxD
	}
	jitter := time.Duration(float64(base) * 0.25)
	d := base - jitter + time.Duration(float64(2*jitter)*pseudoRandom(attemptNum))
	if d < minD {
		d = minD
	}
	return d
}

// pseudoRandom returns a deterministic value in [0,1) derived from the
// attempt number; retryablehttp is given the attempt count, not a seeded
// RNG, and package-level randomness is avoided so backoff stays testable.
func pseudoRandom(attempt int) float64 {
	x := (attempt*2654435761 + 1) % 997
	return float64(x) / 997.0
}

// checkRetry retries transient transport errors and 5xx/429 responses;
// everything else (4xx except 429) is permanent, matching spec.md §4.1.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return true, nil
	}
	if resp.StatusCode >= 500 {
		return true, nil
	}
	return false, nil
}

func (c *Client) do(ctx context.Context, method, path string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	u := *c.baseURL
	u.Path = u.Path + path

	req, err := retryablehttp.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return c.http.Do(req)
}

func (c *Client) ListGroup(ctx context.Context, taskGroupID string) (<-chan ingestion.TaskRef, <-chan error) {
	out := make(chan ingestion.TaskRef)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		seen := make(map[string]struct{})
		continuation := ""
		for {
			path := fmt.Sprintf("/api/queue/v1/task-group/%s/list", taskGroupID)
			if continuation != "" {
				path += "?continuationToken=" + url.QueryEscape(continuation)
			}

			resp, err := c.do(ctx, http.MethodGet, path)
			if err != nil {
				errc <- fmt.Errorf("%w: list task group: %v", apperrors.ErrIngestFatal, err)
				return
			}
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				resp.Body.Close()
				errc <- fmt.Errorf("%w: list task group returned %d", apperrors.ErrIngestFatal, resp.StatusCode)
				return
			}
			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				resp.Body.Close()
				errc <- fmt.Errorf("%w: list task group returned %d: %s", apperrors.ErrIngestFatal, resp.StatusCode, body)
				return
			}

			var page struct {
				Tasks []struct {
					Status struct {
						TaskID string `json:"taskId"`
					} `json:"status"`
				} `json:"tasks"`
				ContinuationToken string `json:"continuationToken"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
				resp.Body.Close()
				errc <- fmt.Errorf("%w: decode task group page: %v", apperrors.ErrIngestFatal, err)
				return
			}
			resp.Body.Close()

			for _, t := range page.Tasks {
				if _, ok := seen[t.Status.TaskID]; ok {
					continue
				}
				seen[t.Status.TaskID] = struct{}{}
				select {
				case out <- ingestion.TaskRef{TaskID: t.Status.TaskID}:
				case <-ctx.Done():
					return
				}
			}

			if page.ContinuationToken == "" {
				return
			}
			continuation = page.ContinuationToken
		}
	}()

	return out, errc
}

func (c *Client) GetTask(ctx context.Context, taskID string) (*ingestion.TaskRecord, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/queue/v1/task/"+taskID)
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", taskID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get task %s: status %d", taskID, resp.StatusCode)
	}

	var def struct {
		Metadata struct {
			Name string `json:"name"`
		} `json:"metadata"`
		Tags map[string]string `json:"tags"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&def); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", taskID, err)
	}

	statusResp, err := c.do(ctx, http.MethodGet, "/api/queue/v1/task/"+taskID+"/status")
	if err != nil {
		return nil, fmt.Errorf("get task status %s: %w", taskID, err)
	}
	defer statusResp.Body.Close()

	var status struct {
		Status struct {
			State string `json:"state"`
			Runs  []struct {
				RunID int `json:"runId"`
			} `json:"runs"`
		} `json:"status"`
	}
	if err := json.NewDecoder(statusResp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode task status %s: %w", taskID, err)
	}

	runID := 0
	if n := len(status.Status.Runs); n > 0 {
		runID = status.Status.Runs[n-1].RunID
	}

	return &ingestion.TaskRecord{
		ID:    taskID,
		Name:  def.Metadata.Name,
		Tags:  def.Tags,
		State: normalizeState(status.Status.State),
		RunID: runID,
	}, nil
}

func normalizeState(s string) ingestion.TaskState {
	switch s {
	case "pending", "unscheduled":
		return ingestion.TaskPending
	case "running":
		return ingestion.TaskRunning
	case "completed":
		return ingestion.TaskCompleted
	case "failed":
		return ingestion.TaskFailed
	default:
		return ingestion.TaskException
	}
}

func (c *Client) GetArtifact(ctx context.Context, taskID string, runID int, path string) ([]byte, error) {
	p := fmt.Sprintf("/api/queue/v1/task/%s/runs/%s/artifacts/%s", taskID, strconv.Itoa(runID), path)
	resp, err := c.do(ctx, http.MethodGet, p)
	if err != nil {
		return nil, fmt.Errorf("get artifact %s/%s: %w", taskID, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get artifact %s/%s: status %d", taskID, path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s/%s: %w", taskID, path, err)
	}
	return body, nil
}

var _ ingestion.Client = (*Client)(nil)
