// Package convcache persists conversation summaries locally so the sidebar
// can render before the first remote fetch completes. The server remains the
// source of truth; this is a read-through cache, refreshed on every load.
package convcache

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/nanochat/nanochat-desktop/pkg/client"
)

type Store struct {
	db *sql.DB
}

// New opens (and migrates) a conversation cache at the given sqlite DSN.
func New(dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("conversation cache: empty dsn")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "conversation cache: open")
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS conversations (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL DEFAULT '',
			user_id     TEXT NOT NULL DEFAULT '',
			project_id  TEXT,
			pinned      INTEGER NOT NULL DEFAULT 0,
			generating  INTEGER NOT NULL DEFAULT 0,
			cost_usd    REAL,
			created_at  TEXT NOT NULL DEFAULT '',
			updated_at  TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at DESC);
	`)
	return errors.Wrap(err, "conversation cache: migrate")
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Upsert stores one conversation summary.
func (s *Store) Upsert(ctx context.Context, conv client.Conversation) error {
	if s == nil || s.db == nil {
		return errors.New("conversation cache: db is nil")
	}
	if conv.ID == "" {
		return errors.New("conversation cache: conversation id is empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, title, user_id, project_id, pinned, generating, cost_usd, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title      = excluded.title,
			user_id    = excluded.user_id,
			project_id = excluded.project_id,
			pinned     = excluded.pinned,
			generating = excluded.generating,
			cost_usd   = excluded.cost_usd,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`, conv.ID, conv.Title, conv.UserID, conv.ProjectID, boolToInt(conv.Pinned), boolToInt(conv.Generating), conv.CostUSD, conv.CreatedAt, conv.UpdatedAt)
	return errors.Wrap(err, "conversation cache: upsert")
}

// ReplaceAll atomically swaps the cached list for a fresh remote snapshot.
func (s *Store) ReplaceAll(ctx context.Context, conversations []client.Conversation) error {
	if s == nil || s.db == nil {
		return errors.New("conversation cache: db is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "conversation cache: begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM conversations`); err != nil {
		return errors.Wrap(err, "conversation cache: clear")
	}
	for _, conv := range conversations {
		if conv.ID == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conversations (id, title, user_id, project_id, pinned, generating, cost_usd, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, conv.ID, conv.Title, conv.UserID, conv.ProjectID, boolToInt(conv.Pinned), boolToInt(conv.Generating), conv.CostUSD, conv.CreatedAt, conv.UpdatedAt); err != nil {
			return errors.Wrap(err, "conversation cache: insert")
		}
	}
	return errors.Wrap(tx.Commit(), "conversation cache: commit")
}

// Get returns one cached conversation, reporting whether it was present.
func (s *Store) Get(ctx context.Context, id string) (client.Conversation, bool, error) {
	if s == nil || s.db == nil {
		return client.Conversation{}, false, errors.New("conversation cache: db is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, user_id, project_id, pinned, generating, cost_usd, created_at, updated_at
		FROM conversations WHERE id = ?
	`, id)
	conv, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return client.Conversation{}, false, nil
	}
	if err != nil {
		return client.Conversation{}, false, errors.Wrap(err, "conversation cache: get")
	}
	return conv, true, nil
}

// List returns cached conversations, pinned first, most recently updated next.
func (s *Store) List(ctx context.Context) ([]client.Conversation, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("conversation cache: db is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, user_id, project_id, pinned, generating, cost_usd, created_at, updated_at
		FROM conversations
		ORDER BY pinned DESC, updated_at DESC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "conversation cache: list")
	}
	defer func() { _ = rows.Close() }()

	var out []client.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, errors.Wrap(err, "conversation cache: scan")
		}
		out = append(out, conv)
	}
	return out, errors.Wrap(rows.Err(), "conversation cache: rows")
}

// Delete removes one cached conversation.
func (s *Store) Delete(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return errors.New("conversation cache: db is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	return errors.Wrap(err, "conversation cache: delete")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(row scanner) (client.Conversation, error) {
	var (
		conv       client.Conversation
		projectID  sql.NullString
		pinned     int64
		generating int64
		costUSD    sql.NullFloat64
	)
	err := row.Scan(&conv.ID, &conv.Title, &conv.UserID, &projectID, &pinned, &generating, &costUSD, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return client.Conversation{}, err
	}
	if projectID.Valid {
		conv.ProjectID = &projectID.String
	}
	if costUSD.Valid {
		conv.CostUSD = &costUSD.Float64
	}
	conv.Pinned = pinned != 0
	conv.Generating = generating != 0
	return conv, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
