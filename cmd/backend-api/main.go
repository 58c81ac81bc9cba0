// Command backend-api serves the read-only HTTP surface over the
// system-of-record database (spec.md §6).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/mozilla/code-review/internal/config"
	"github.com/mozilla/code-review/internal/repository/postgres"
	"github.com/mozilla/code-review/internal/service"
	myhttp "github.com/mozilla/code-review/internal/transport/http"
	"github.com/mozilla/code-review/pkg/logger/slogpretty"
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

	log.Info("starting backend-api", slog.String("channel", string(cfg.AppChannel)))

	errChan := make(chan error, 1)

	db, err := postgres.NewDB(cfg.Postgres, log)
	if err != nil {
		return fmt.Errorf("failed to init db: %w", err)
	}
	defer func() {
		if err := db.DB().Close(); err != nil {
			log.Error("db close failed", slog.Any("error", err))
		}
	}()

	repoRepo := postgres.NewRepositoryRepository(db.DB(), log)
	revRepo := postgres.NewRevisionRepository(db.DB(), log)
	diffRepo := postgres.NewDiffRepository(db.DB(), log)
	issueRepo := postgres.NewIssueRepository(db.DB(), log)

	repoService := service.NewRepositoryService(log, repoRepo)
	revService := service.NewRevisionService(log, revRepo, diffRepo)
	diffService := service.NewDiffService(log, diffRepo, issueRepo)
	chkService := service.NewCheckService(log, issueRepo)

	srv := myhttp.NewServer(log, repoService, revService, diffService, chkService)
	httpServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler: srv.Routes(),
	}

	go startServer(log, httpServer, errChan)

	select {
	case err := <-errChan:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		log.Info("stopping server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down http server: %w", err)
	}

	return nil
}

func startServer(log *slog.Logger, httpServer *http.Server, errChan chan error) {
	defer close(errChan)

	log.Info("backend-api started", slog.String("addr", httpServer.Addr))

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		errChan <- fmt.Errorf("error listening and serving: %w", err)
	}
}
