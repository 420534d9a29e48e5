package asterisk

import (
	"fmt"
	"log"
)

// Channel variables set on every originated call.
const (
	VarSessionID   = "CALL_SESSION_ID"
	VarScript      = "CALL_SCRIPT_B64"
	VarCallbackURL = "CALLBACK_URL_B64"
)

// OriginateParams describes one outbound call.
type OriginateParams struct {
	PhoneNumber string // already normalized to digits and '+'
	Trunk       string
	Context     string
	Extension   string
	CallerID    string
	SessionID   string
	Script      string
	CallbackURL string
}

// OriginateCommand builds an asynchronous Originate action. Async makes the
// engine acknowledge acceptance without waiting for the call to be answered.
//
// Script and callback URL travel as channel variables only when their
// encoded header fits in one manager line. Otherwise the variable is left
// out and the dialplan reads the value from the session store using
// CALL_SESSION_ID.
func OriginateCommand(p OriginateParams) (Command, error) {
	if p.PhoneNumber == "" {
		return Command{}, fmt.Errorf("missing phone number")
	}
	if !ValidDialToken(p.PhoneNumber) || !ValidDialToken(p.Trunk) {
		return Command{}, fmt.Errorf("invalid dial string")
	}
	if !ValidDialToken(p.Context) || !ValidDialToken(p.Extension) {
		return Command{}, fmt.Errorf("invalid dialplan target")
	}
	if !ValidDialToken(p.SessionID) {
		return Command{}, fmt.Errorf("invalid session id")
	}
	if !ValidCallerID(p.CallerID) {
		return Command{}, fmt.Errorf("invalid caller id")
	}

	cmd := NewCommand("Originate").
		With("ActionID", p.SessionID).
		With("Channel", fmt.Sprintf("PJSIP/%s@%s", p.PhoneNumber, p.Trunk)).
		With("Context", p.Context).
		With("Exten", p.Extension).
		With("Priority", "1").
		With("Async", "true")
	if p.CallerID != "" {
		cmd = cmd.With("CallerID", p.CallerID)
	}
	cmd = cmd.With("Variable", PlainVariable(VarSessionID, p.SessionID))
	cmd = withInlineVariable(cmd, p.SessionID, VarScript, p.Script)
	cmd = withInlineVariable(cmd, p.SessionID, VarCallbackURL, p.CallbackURL)
	return cmd, nil
}

func withInlineVariable(cmd Command, sessionID, name, value string) Command {
	if value == "" {
		return cmd
	}
	v := Variable(name, value)
	if !FitsLine("Variable", v) {
		log.Printf("WARN: session %s: %s is %d bytes encoded, left for store lookup", sessionID, name, len(v))
		return cmd
	}
	return cmd.With("Variable", v)
}

// ShowChannelsCommand lists active channels through the CLI bridge action.
func ShowChannelsCommand() Command {
	return NewCommand("Command").With("Command", "core show channels concise")
}

// HangupCommand requests hangup of an engine channel.
func HangupCommand(channel string) (Command, error) {
	if !ValidChannel(channel) {
		return Command{}, fmt.Errorf("invalid channel name")
	}
	return NewCommand("Hangup").With("Channel", channel), nil
}
