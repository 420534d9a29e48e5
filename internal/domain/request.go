package domain

// CallRequest is the raw body of POST /call.
type CallRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Script      string `json:"script"`
	CallbackURL string `json:"callbackUrl,omitempty"`
	Context     string `json:"context,omitempty"`
	Extension   string `json:"extension,omitempty"`
	CallerID    string `json:"callerId,omitempty"`
}

// CallResponse is returned once origination has been accepted.
type CallResponse struct {
	Message     string `json:"message"`
	PhoneNumber string `json:"phoneNumber"`
	SessionID   string `json:"sessionId"`
	Script      string `json:"script"`
	CallbackURL string `json:"callbackUrl"`
	Note        string `json:"note"`
}

// AppendEntriesRequest is the body of POST /conversation/:session_id/entries.
type AppendEntriesRequest struct {
	Entries []ConversationEntry `json:"entries"`
}

// CompleteRequest is the body of POST /conversation/:session_id/complete.
type CompleteRequest struct {
	Entries []ConversationEntry `json:"entries,omitempty"`
	Reason  string              `json:"reason,omitempty"`
}

// HangupRequest is the body of POST /hangup.
type HangupRequest struct {
	Channel string `json:"channel"`
}

// HangupResponse is returned after the engine accepted a hangup.
type HangupResponse struct {
	Message string `json:"message"`
	Output  string `json:"output"`
}

// ChannelsResponse wraps the engine's channel snapshot.
type ChannelsResponse struct {
	Channels string `json:"channels"`
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
