// Package checkpoint is a SQLite-backed store of which task ids a
// list_group enumeration has already yielded, kept apart from the Postgres
// system of record. No pipeline code opens it: ListGroup and Run do not
// read or write it, so a crashed run pages the task group from its start.
package checkpoint

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type Store struct {
	db *sql.DB
}

// Open creates (or reopens) the checkpoint database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint db: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS seen_tasks (
	task_group_id TEXT NOT NULL,
	task_id       TEXT NOT NULL,
	PRIMARY KEY (task_group_id, task_id)
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate checkpoint db: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// MarkSeen records that taskID has been enumerated for taskGroupID.
func (s *Store) MarkSeen(ctx context.Context, taskGroupID, taskID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO seen_tasks (task_group_id, task_id) VALUES (?, ?)`,
		taskGroupID, taskID)
	if err != nil {
		return fmt.Errorf("mark task seen: %w", err)
	}
	return nil
}

// Seen returns the set of task ids already enumerated for taskGroupID.
func (s *Store) Seen(ctx context.Context, taskGroupID string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id FROM seen_tasks WHERE task_group_id = ?`, taskGroupID)
	if err != nil {
		return nil, fmt.Errorf("query seen tasks: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan seen task: %w", err)
		}
		seen[id] = struct{}{}
	}
	return seen, rows.Err()
}
