// Command cleanup runs the periodic issue-retention sweep (spec.md §9
// supplemented feature, mirroring the original's
// management/commands/cleanup_issues), scheduled with robfig/cron/v3.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mozilla/code-review/internal/backend/cleanup"
	"github.com/mozilla/code-review/internal/config"
	"github.com/mozilla/code-review/internal/repository/postgres"
	"github.com/mozilla/code-review/pkg/logger/sl"
	"github.com/mozilla/code-review/pkg/logger/slogpretty"
)

// retentionWindow and schedule are not yet part of the configuration
// document; spec.md §9 leaves the retention period to the operator.
const (
	retentionWindow = 180 * 24 * time.Hour
	schedule        = "0 3 * * *" // daily at 03:00
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg := config.MustLoad(os.Getenv("CONFIG_PATH"))
	log := slogpretty.SetupLogger(string(cfg.AppChannel))
	log.Info("starting cleanup scheduler", slog.String("schedule", schedule))

	db, err := postgres.NewDB(cfg.Postgres, log)
	if err != nil {
		return fmt.Errorf("failed to init db: %w", err)
	}
	defer func() { _ = db.DB().Close() }()

	issueRepo := postgres.NewIssueRepository(db.DB(), log)
	job := cleanup.New(db.DB(), log, issueRepo, retentionWindow)

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		if _, err := job.Run(runCtx); err != nil {
			log.Error("cleanup sweep failed", sl.Err(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule cleanup job: %w", err)
	}

	c.Start()
	defer c.Stop()

	<-ctx.Done()
	log.Info("stopping cleanup scheduler")
	return nil
}
