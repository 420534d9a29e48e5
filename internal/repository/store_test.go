package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaot623/gogo/callcontrol/internal/config"
	"github.com/xiaot623/gogo/callcontrol/internal/domain"
)

func newSession(id string) *domain.CallSession {
	return &domain.CallSession{
		SessionID:    id,
		PhoneNumber:  "+17756187988",
		Script:       "hello'; rm -rf /; echo '",
		CallbackURL:  "https://example.com/hook?a=1&b=2",
		Status:       domain.SessionStatusPending,
		StartTime:    time.Now().UTC().Truncate(time.Millisecond),
		Conversation: []domain.ConversationEntry{},
	}
}

func storeImpls(t *testing.T) map[string]Store {
	t.Helper()
	fileStore, err := NewFileStore(filepath.Join(t.TempDir(), "conversations"))
	require.NoError(t, err)
	sqliteStore, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteStore.Close() })
	return map[string]Store{"file": fileStore, "sqlite": sqliteStore}
}

func TestStorePutGet(t *testing.T) {
	for name, s := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := newSession("call_roundtrip")
			require.NoError(t, s.PutSession(ctx, want))

			got, err := s.GetSession(ctx, "call_roundtrip")
			require.NoError(t, err)
			assert.Equal(t, want.Script, got.Script)
			assert.Equal(t, want.CallbackURL, got.CallbackURL)
			assert.Equal(t, want.PhoneNumber, got.PhoneNumber)
			assert.True(t, want.StartTime.Equal(got.StartTime))
			assert.NotNil(t, got.Conversation)
			assert.Empty(t, got.Conversation)
		})
	}
}

func TestStoreOverwrite(t *testing.T) {
	for name, s := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sess := newSession("call_overwrite")
			require.NoError(t, s.PutSession(ctx, sess))

			sess.Status = domain.SessionStatusCompleted
			sess.Conversation = append(sess.Conversation, domain.ConversationEntry{Role: "agent", Text: "bye"})
			require.NoError(t, s.PutSession(ctx, sess))

			got, err := s.GetSession(ctx, "call_overwrite")
			require.NoError(t, err)
			assert.Equal(t, domain.SessionStatusCompleted, got.Status)
			assert.Len(t, got.Conversation, 1)
		})
	}
}

func TestStoreNotFound(t *testing.T) {
	for name, s := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := s.GetSession(ctx, "call_doesnotexist")
			assert.ErrorIs(t, err, domain.ErrNotFound)

			_, err = s.GetSession(ctx, "../../etc/passwd")
			assert.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestStoreRejectsInvalidKey(t *testing.T) {
	for name, s := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			err := s.PutSession(context.Background(), newSession("../escape"))
			var se *domain.StorageError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, domain.StorageOpWrite, se.Op)
		})
	}
}

func TestNewFileStoreIdempotentDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "conversations")
	_, err := NewFileStore(dir)
	require.NoError(t, err)
	_, err = NewFileStore(dir)
	assert.NoError(t, err)
}

func TestFileStoreWriteFailure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "conversations")
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.WriteFile(dir, []byte("not a directory"), 0o644))

	err = s.PutSession(context.Background(), newSession("call_fail"))
	var se *domain.StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "StorageWriteError", se.Kind())
}

func TestFileStoreReadFailure(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "call_corrupt.json"), []byte("{"), 0o644))

	_, err = s.GetSession(context.Background(), "call_corrupt")
	var se *domain.StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "StorageReadError", se.Kind())
	assert.False(t, errors.Is(err, domain.ErrNotFound))
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.PutSession(context.Background(), newSession("call_clean")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "call_clean.json", entries[0].Name())
}

func TestFileStoreConcurrentReadersSeeWholeRecords(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	sess := newSession("call_concurrent")
	require.NoError(t, s.PutSession(ctx, sess))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			c := sess.Clone()
			c.Conversation = append(c.Conversation, domain.ConversationEntry{Role: "user", Text: "line"})
			_ = s.PutSession(ctx, c)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			got, err := s.GetSession(ctx, "call_concurrent")
			if assert.NoError(t, err) {
				assert.Equal(t, sess.Script, got.Script)
			}
		}
	}()
	wg.Wait()
}

func TestOpenSelectsDriver(t *testing.T) {
	s, err := Open(&config.Config{StoreDriver: "file", ConversationDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(&config.Config{StoreDriver: "sqlite", DatabaseURL: ":memory:"})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	s.Close()

	_, err = Open(&config.Config{StoreDriver: "redis"})
	assert.Error(t, err)
}
