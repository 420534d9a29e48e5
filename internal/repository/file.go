package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/xiaot623/gogo/callcontrol/internal/domain"
)

// FileStore implements Store with one JSON document per session.
type FileStore struct {
	dir string
}

// NewFileStore creates the conversation directory if needed and returns a store rooted at it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create conversation dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the storage directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".json")
}

// PutSession writes the session to a temp file and renames it into place.
func (s *FileStore) PutSession(ctx context.Context, session *domain.CallSession) error {
	if session == nil || !validKey(session.SessionID) {
		return writeErr(errors.New("invalid session id"))
	}
	if err := ctx.Err(); err != nil {
		return writeErr(err)
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return writeErr(fmt.Errorf("encode session: %w", err))
	}

	tmp, err := os.CreateTemp(s.dir, "."+session.SessionID+".*.tmp")
	if err != nil {
		return writeErr(err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return writeErr(err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return writeErr(err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return writeErr(err)
	}
	if err := os.Rename(tmpName, s.path(session.SessionID)); err != nil {
		cleanup()
		return writeErr(err)
	}
	return nil
}

// GetSession reads a session by id.
func (s *FileStore) GetSession(ctx context.Context, sessionID string) (*domain.CallSession, error) {
	if !validKey(sessionID) {
		return nil, domain.ErrNotFound
	}
	if err := ctx.Err(); err != nil {
		return nil, readErr(err)
	}

	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, readErr(err)
	}

	var session domain.CallSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, readErr(fmt.Errorf("decode session: %w", err))
	}
	if session.Conversation == nil {
		session.Conversation = []domain.ConversationEntry{}
	}
	return &session, nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}
