package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Conversation describes one imported conversation.
type Conversation struct {
	ID         string
	Title      string
	Messages   int
	ImportedAt time.Time
}

// Store keeps imported conversation histories in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore opens or creates the database at dbPath.
func OpenStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	// One writer; sqlite serialises anyway and this avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &Store{db: db, path: dbPath}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			imported_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS messages (
			conversation_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			tool_name TEXT NOT NULL DEFAULT '',
			tool_status TEXT NOT NULL DEFAULT '',
			tool_call_id TEXT NOT NULL DEFAULT '',
			tool_input TEXT,
			tool_output TEXT,
			PRIMARY KEY (conversation_id, seq)
		);
	`
	_, err := db.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Import replaces the stored history of conversationID with msgs.
func (s *Store) Import(ctx context.Context, conversationID, title string, msgs []Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, conversationID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO conversations (id, title, imported_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, imported_at = excluded.imported_at
	`, conversationID, title, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("record conversation: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (conversation_id, seq, kind, role, content, tool_name, tool_status, tool_call_id, tool_input, tool_output)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range clean(append([]Message(nil), msgs...)) {
		if _, err := stmt.ExecContext(ctx, conversationID, i, m.Kind, m.Role, m.Content,
			m.ToolName, m.ToolStatus, m.ToolCallID, nullable(m.ToolInput), nullable(m.ToolOutput)); err != nil {
			return fmt.Errorf("insert message %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Messages returns the stored history in its original order. An unknown
// conversation yields no messages.
func (s *Store) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, role, content, tool_name, tool_status, tool_call_id, tool_input, tool_output
		FROM messages
		WHERE conversation_id = ?
		ORDER BY seq
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		var input, output sql.NullString
		if err := rows.Scan(&m.Kind, &m.Role, &m.Content, &m.ToolName, &m.ToolStatus, &m.ToolCallID, &input, &output); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if input.Valid {
			m.ToolInput = json.RawMessage(input.String)
		}
		if output.Valid {
			m.ToolOutput = json.RawMessage(output.String)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// Conversations lists imported conversations, most recent import first.
func (s *Store) Conversations(ctx context.Context) ([]Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.title, c.imported_at, COUNT(m.seq)
		FROM conversations c
		LEFT JOIN messages m ON m.conversation_id = c.id
		GROUP BY c.id
		ORDER BY c.imported_at DESC, c.id
	`)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		var c Conversation
		var imported int64
		if err := rows.Scan(&c.ID, &c.Title, &imported, &c.Messages); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		c.ImportedAt = time.UnixMilli(imported)
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullable(raw json.RawMessage) any {
	if !present(raw) {
		return nil
	}
	return string(raw)
}
