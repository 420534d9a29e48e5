package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/xiaot623/gogo/callcontrol/internal/domain"
)

// AppendEntries appends transcript entries reported by the dialplan and moves
// a pending session to active.
func (s *Service) AppendEntries(ctx context.Context, sessionID string, entries []domain.ConversationEntry) (*domain.CallSession, error) {
	if len(entries) == 0 {
		return nil, domain.NewValidationError("entries", "at least one entry is required")
	}
	if err := validateEntries(entries); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, domain.ErrSessionCompleted
	}

	session.Conversation = append(session.Conversation, stamp(entries)...)
	if session.Status == domain.SessionStatusPending {
		session.Status = domain.SessionStatusActive
	}
	if err := s.store.PutSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// CompleteSession finalizes the transcript and, when the session has a
// callback URL, notifies it in the background.
func (s *Service) CompleteSession(ctx context.Context, sessionID string, req *domain.CompleteRequest) (*domain.CallSession, error) {
	if err := validateEntries(req.Entries); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(sessionID)
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		unlock()
		return nil, err
	}
	if session.Status.Terminal() {
		unlock()
		return nil, domain.ErrSessionCompleted
	}

	now := time.Now().UTC()
	session.Conversation = append(session.Conversation, stamp(req.Entries)...)
	session.Status = domain.SessionStatusCompleted
	session.EndTime = &now
	session.EndReason = req.Reason
	if err := s.store.PutSession(ctx, session); err != nil {
		unlock()
		return nil, err
	}
	unlock()

	log.Printf("Session %s completed with %d entries", sessionID, len(session.Conversation))

	if session.CallbackURL != "" && s.notifier != nil {
		s.pending.Add(1)
		go s.notify(session.Clone())
	}
	return session, nil
}

// notify delivers the final record and records the outcome on the session.
// Failures never revert completion.
func (s *Service) notify(session *domain.CallSession) {
	defer s.pending.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout())
	defer cancel()

	notifyErr := s.notifier.Notify(ctx, session)
	if notifyErr != nil {
		log.Printf("WARN: callback for session %s failed: %v", session.SessionID, notifyErr)
	}

	unlock := s.locks.Lock(session.SessionID)
	defer unlock()

	current, err := s.store.GetSession(ctx, session.SessionID)
	if err != nil {
		log.Printf("WARN: failed to reload session %s after callback: %v", session.SessionID, err)
		return
	}
	if notifyErr != nil {
		current.NotifyError = notifyErr.Error()
	} else {
		now := time.Now().UTC()
		current.NotifiedAt = &now
		current.NotifyError = ""
	}
	if err := s.store.PutSession(ctx, current); err != nil {
		log.Printf("WARN: failed to record callback result for session %s: %v", session.SessionID, err)
	}
}

func (s *Service) notifyTimeout() time.Duration {
	if s.config != nil && s.config.NotifyTimeout > 0 {
		// Leave headroom for the store update after the POST.
		return s.config.NotifyTimeout + 5*time.Second
	}
	return 15 * time.Second
}

func validateEntries(entries []domain.ConversationEntry) error {
	for _, e := range entries {
		if strings.TrimSpace(e.Role) == "" {
			return domain.NewValidationError("entries", "entry role is required")
		}
	}
	return nil
}

func stamp(entries []domain.ConversationEntry) []domain.ConversationEntry {
	now := time.Now().UTC()
	out := make([]domain.ConversationEntry, len(entries))
	for i, e := range entries {
		if e.Timestamp.IsZero() {
			e.Timestamp = now
		}
		out[i] = e
	}
	return out
}
