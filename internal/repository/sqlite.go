package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/xiaot623/gogo/callcontrol/internal/domain"
)

// SQLiteStore implements Store using SQLite. The full record is kept as a
// JSON document; status and start time are mirrored into columns for ops queries.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS call_sessions (
			session_id TEXT PRIMARY KEY,
			phone_number TEXT NOT NULL,
			status TEXT NOT NULL,
			start_time DATETIME NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			data TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_call_sessions_status ON call_sessions(status, start_time)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// PutSession upserts the session row in a single statement.
func (s *SQLiteStore) PutSession(ctx context.Context, session *domain.CallSession) error {
	if session == nil || !validKey(session.SessionID) {
		return writeErr(errors.New("invalid session id"))
	}
	data, err := json.Marshal(session)
	if err != nil {
		return writeErr(fmt.Errorf("encode session: %w", err))
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO call_sessions (session_id, phone_number, status, start_time, updated_at, data)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at,
			data = excluded.data
	`, session.SessionID, session.PhoneNumber, string(session.Status), session.StartTime, time.Now(), string(data))
	if err != nil {
		return writeErr(err)
	}
	return nil
}

// GetSession reads a session by id.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.CallSession, error) {
	if !validKey(sessionID) {
		return nil, domain.ErrNotFound
	}

	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM call_sessions WHERE session_id = ?`, sessionID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, readErr(err)
	}

	var session domain.CallSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, readErr(fmt.Errorf("decode session: %w", err))
	}
	if session.Conversation == nil {
		session.Conversation = []domain.ConversationEntry{}
	}
	return &session, nil
}
