// Package archive persists transcript messages to a SQLite database so
// past runs stay searchable after the process exits. The archive is an
// append-only sink; the in-memory transcript remains the source of truth
// for the live run.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nstogner/tandem/pkg/domain"
)

// Store archives messages to SQLite.
type Store struct {
	db    *sql.DB
	runID string
}

// New opens (or creates) the database at dbPath and runs migrations. runID
// scopes archived messages to one conversation run.
func New(dbPath, runID string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db, runID: runID}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		id TEXT NOT NULL,
		agent_id TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		content_type TEXT NOT NULL DEFAULT 'text',
		content TEXT NOT NULL DEFAULT '',
		operator INTEGER NOT NULL DEFAULT 0,
		timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (run_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_messages_run ON messages(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ArchiveMessages inserts messages for this run. Re-archiving the same
// sequence numbers is a no-op, so callers can hand over overlapping
// transcript slices without bookkeeping.
func (s *Store) ArchiveMessages(ctx context.Context, msgs []domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO messages (run_id, seq, id, agent_id, role, content_type, content, operator, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range msgs {
		if _, err := stmt.ExecContext(ctx,
			s.runID, m.Seq, m.ID, m.AgentID, string(m.Role), m.ContentType,
			m.Content, m.Operator, m.Timestamp,
		); err != nil {
			return fmt.Errorf("insert message %d: %w", m.Seq, err)
		}
	}
	return tx.Commit()
}

// SearchResult is one archive hit.
type SearchResult struct {
	RunID     string
	Seq       int64
	AgentID   string
	Role      domain.Role
	Content   string
	Timestamp time.Time
}

// Search returns messages across all runs whose content contains the query
// substring, newest first, capped at limit.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, seq, agent_id, role, content, timestamp
		 FROM messages
		 WHERE content LIKE ?
		 ORDER BY timestamp DESC, seq DESC
		 LIMIT ?`,
		"%"+query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var role string
		if err := rows.Scan(&r.RunID, &r.Seq, &r.AgentID, &role, &r.Content, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		r.Role = domain.Role(role)
		results = append(results, r)
	}
	return results, rows.Err()
}
