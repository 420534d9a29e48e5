package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xiaot623/gogo/callcontrol/internal/adapter/asterisk"
	"github.com/xiaot623/gogo/callcontrol/internal/domain"
	"github.com/xiaot623/gogo/callcontrol/internal/policy"
)

// NormalizePhoneNumber keeps only digits and '+'. Malformed numbers pass
// through best-effort; the engine does final validation.
func NormalizePhoneNumber(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NewSessionID returns call_<unix millis, base36>_<v4 uuid, hex>. The uuid
// carries 122 random bits, so ids stay unique even within one millisecond.
func NewSessionID() string {
	u := uuid.New()
	return "call_" + strconv.FormatInt(time.Now().UnixMilli(), 36) + "_" + hex.EncodeToString(u[:])
}

// validateCallRequest checks req and fills defaults. It has no side effects.
func (s *Service) validateCallRequest(req *domain.CallRequest) (*domain.CallSession, error) {
	if strings.TrimSpace(req.PhoneNumber) == "" {
		return nil, domain.NewValidationError("phoneNumber", "phoneNumber is required")
	}
	number := NormalizePhoneNumber(req.PhoneNumber)
	if number == "" {
		return nil, domain.NewValidationError("phoneNumber", "phoneNumber must contain digits")
	}
	if strings.TrimSpace(req.Script) == "" {
		return nil, domain.NewValidationError("script", "script is required")
	}

	callCtx := firstNonEmpty(req.Context, s.config.DefaultContext)
	if !asterisk.ValidDialToken(callCtx) {
		return nil, domain.NewValidationError("context", "context contains unsupported characters")
	}
	exten := firstNonEmpty(req.Extension, s.config.DefaultExtension)
	if !asterisk.ValidDialToken(exten) {
		return nil, domain.NewValidationError("extension", "extension contains unsupported characters")
	}
	callerID := firstNonEmpty(req.CallerID, s.config.DefaultCallerID)
	if !asterisk.ValidCallerID(callerID) {
		return nil, domain.NewValidationError("callerId", "callerId is invalid")
	}
	if req.CallbackURL != "" {
		u, err := url.Parse(req.CallbackURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, domain.NewValidationError("callbackUrl", "callbackUrl must be an http(s) URL")
		}
	}

	return &domain.CallSession{
		PhoneNumber:  number,
		Script:       req.Script,
		CallbackURL:  req.CallbackURL,
		Context:      callCtx,
		Extension:    exten,
		CallerID:     callerID,
		Status:       domain.SessionStatusPending,
		Conversation: []domain.ConversationEntry{},
	}, nil
}

// CreateSession validates req, checks the dial policy and persists a new
// pending session. A storage failure is logged and does not fail creation.
func (s *Service) CreateSession(ctx context.Context, req *domain.CallRequest) (*domain.CallSession, error) {
	session, err := s.validateCallRequest(req)
	if err != nil {
		return nil, err
	}

	if s.policyEngine != nil {
		decision, reason, err := s.policyEngine.Evaluate(ctx, policy.Input{
			PhoneNumber: session.PhoneNumber,
			Context:     session.Context,
			Extension:   session.Extension,
		})
		if err != nil {
			return nil, fmt.Errorf("dial policy: %w", err)
		}
		if decision == policy.DecisionBlock {
			log.Printf("WARN: dial policy blocked %s: %s", session.PhoneNumber, reason)
			return nil, &domain.PolicyError{Reason: reason}
		}
	}

	session.SessionID = NewSessionID()
	session.StartTime = time.Now().UTC()

	if err := s.store.PutSession(ctx, session); err != nil {
		log.Printf("WARN: failed to persist session %s, continuing with call: %v", session.SessionID, err)
	}
	return session, nil
}

// PlaceCall creates a session and originates the call. If origination fails
// the persisted session is left in place for inspection.
func (s *Service) PlaceCall(ctx context.Context, req *domain.CallRequest) (*domain.CallSession, error) {
	session, err := s.CreateSession(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.dispatcher.Originate(ctx, session); err != nil {
		var de *domain.DispatchError
		switch {
		case errors.As(err, &de) && de.Cause == domain.DispatchCauseCanceled:
			log.Printf("WARN: originate for session %s abandoned by caller: %v", session.SessionID, err)
		case de != nil:
			log.Printf("ERROR: originate failed for session %s (%s): %v", session.SessionID, de.Cause, err)
		}
		return session, err
	}
	return session, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
