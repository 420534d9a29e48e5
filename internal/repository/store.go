// Package store defines the session storage interface and implementations.
package store

import (
	"context"
	"regexp"

	"github.com/xiaot623/gogo/callcontrol/internal/domain"
)

// Store defines the interface for session persistence.
//
// PutSession creates or fully overwrites the record keyed by its SessionID;
// readers never observe a partially written record. GetSession returns
// domain.ErrNotFound for unknown identifiers and a *domain.StorageError for
// I/O failures.
type Store interface {
	PutSession(ctx context.Context, session *domain.CallSession) error
	GetSession(ctx context.Context, sessionID string) (*domain.CallSession, error)
	Close() error
}

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// validKey rejects identifiers that could never have been generated, which
// also keeps them from escaping the storage directory.
func validKey(sessionID string) bool {
	return sessionIDPattern.MatchString(sessionID)
}

func writeErr(err error) error {
	return &domain.StorageError{Op: domain.StorageOpWrite, Err: err}
}

func readErr(err error) error {
	return &domain.StorageError{Op: domain.StorageOpRead, Err: err}
}
