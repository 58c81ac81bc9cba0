// Package service implements the backend's read-only query layer over the
// system-of-record database (spec.md §6): Repository/Revision/Diff/Issue
// listings and per-check aggregates. The pipeline writes through
// internal/backend.Writer directly against internal/repository/postgres;
// this package only ever reads, so it has no need for the teacher's
// transaction() helper — kept as BaseService below purely for the shared
// logger field every service embeds.
package service

import "log/slog"

// BaseService holds the logger every service embeds, following the
// teacher's BaseService convention.
type BaseService struct {
	log *slog.Logger
}

func NewBaseService(log *slog.Logger) BaseService {
	return BaseService{log: log}
}
