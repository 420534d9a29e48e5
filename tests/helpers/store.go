package helpers

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/xiaot623/gogo/callcontrol/internal/domain"
	"github.com/xiaot623/gogo/callcontrol/internal/repository"
)

func NewTestFileStore(t *testing.T) *store.FileStore {
	t.Helper()

	s, err := store.NewFileStore(filepath.Join(t.TempDir(), "conversations"))
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	return s
}

func NewTestSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// FlakyStore wraps a Store and fails writes or reads on demand.
type FlakyStore struct {
	store.Store

	mu       sync.Mutex
	failPuts bool
	failGets bool
	putCalls int
}

func NewFlakyStore(inner store.Store) *FlakyStore {
	return &FlakyStore{Store: inner}
}

func (f *FlakyStore) FailPuts(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPuts = v
}

func (f *FlakyStore) FailGets(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGets = v
}

func (f *FlakyStore) PutCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.putCalls
}

func (f *FlakyStore) PutSession(ctx context.Context, session *domain.CallSession) error {
	f.mu.Lock()
	f.putCalls++
	fail := f.failPuts
	f.mu.Unlock()
	if fail {
		return &domain.StorageError{Op: domain.StorageOpWrite, Err: errors.New("disk full")}
	}
	return f.Store.PutSession(ctx, session)
}

func (f *FlakyStore) GetSession(ctx context.Context, sessionID string) (*domain.CallSession, error) {
	f.mu.Lock()
	fail := f.failGets
	f.mu.Unlock()
	if fail {
		return nil, &domain.StorageError{Op: domain.StorageOpRead, Err: errors.New("/var/lib/calls/x.json: input/output error")}
	}
	return f.Store.GetSession(ctx, sessionID)
}
