package domain

import "time"

// CallSession is one tracked outbound-call attempt plus its eventual transcript.
type CallSession struct {
	SessionID    string              `json:"sessionId"`
	PhoneNumber  string              `json:"phoneNumber"`
	Script       string              `json:"script"`
	CallbackURL  string              `json:"callbackUrl,omitempty"`
	Context      string              `json:"context,omitempty"`
	Extension    string              `json:"extension,omitempty"`
	CallerID     string              `json:"callerId,omitempty"`
	Status       SessionStatus       `json:"status"`
	StartTime    time.Time           `json:"startTime"`
	EndTime      *time.Time          `json:"endTime,omitempty"`
	EndReason    string              `json:"endReason,omitempty"`
	Conversation []ConversationEntry `json:"conversation"`
	NotifiedAt   *time.Time          `json:"notifiedAt,omitempty"`
	NotifyError  string              `json:"notifyError,omitempty"`
}

// ConversationEntry is one transcript line recorded by the dialplan.
type ConversationEntry struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (s *CallSession) Clone() *CallSession {
	if s == nil {
		return nil
	}
	out := *s
	out.Conversation = append([]ConversationEntry(nil), s.Conversation...)
	if s.EndTime != nil {
		t := *s.EndTime
		out.EndTime = &t
	}
	if s.NotifiedAt != nil {
		t := *s.NotifiedAt
		out.NotifiedAt = &t
	}
	return &out
}
