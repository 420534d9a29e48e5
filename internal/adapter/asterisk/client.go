package asterisk

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/xiaot623/gogo/callcontrol/internal/config"
	"github.com/xiaot623/gogo/callcontrol/internal/domain"
)

// Output is what the engine returned for an action.
type Output struct {
	Stdout string
	Stderr string
}

// CommandRunner executes one action against the telephony engine.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) (*Output, error)
}

// Ensure Client implements CommandRunner.
var _ CommandRunner = (*Client)(nil)

// Client is a one-connection-per-action manager client.
type Client struct {
	addr        string
	username    string
	secret      string
	dialTimeout time.Duration
	callTimeout time.Duration
	seq         atomic.Uint64
}

// NewClient creates a manager client from configuration.
func NewClient(cfg *config.Config) *Client {
	timeout := cfg.EngineTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		addr:        cfg.AMIAddr,
		username:    cfg.AMIUsername,
		secret:      cfg.AMISecret,
		dialTimeout: 5 * time.Second,
		callTimeout: timeout,
	}
}

// Run logs in, sends cmd, waits for its response and logs off. Failures are
// returned as *domain.DispatchError.
func (c *Client) Run(ctx context.Context, cmd Command) (*Output, error) {
	if _, err := cmd.Encode(); err != nil {
		return nil, &domain.DispatchError{Cause: domain.DispatchCauseProtocol, Message: "malformed command", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, classify(ctx, err, domain.DispatchCauseUnreachable, "engine unreachable")
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	// Unblock reads when the caller cancels before the deadline.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	s := &session{conn: conn, r: bufio.NewReader(conn)}
	if _, err := s.r.ReadString('\n'); err != nil {
		return nil, classify(ctx, err, domain.DispatchCauseProtocol, "no engine greeting")
	}

	login := NewCommand("Login").
		With("Username", c.username).
		With("Secret", c.secret).
		With("Events", "off")
	resp, err := s.roundTrip(login, c.nextID("login"))
	if err != nil {
		return nil, classify(ctx, err, domain.DispatchCauseProtocol, "login failed")
	}
	if !resp.success() {
		return nil, &domain.DispatchError{Cause: domain.DispatchCauseRejected, Message: "engine authentication failed"}
	}

	actionID := cmd.Get("ActionID")
	if actionID == "" {
		actionID = c.nextID(strings.ToLower(cmd.Action()))
		cmd = cmd.With("ActionID", actionID)
	}
	resp, err = s.roundTrip(cmd, actionID)
	if err != nil {
		return nil, classify(ctx, err, domain.DispatchCauseProtocol, "no response from engine")
	}

	logoff := NewCommand("Logoff")
	if _, err := s.roundTrip(logoff, c.nextID("logoff")); err != nil {
		log.Printf("WARN: ami logoff failed: %v", err)
	}

	out := &Output{Stdout: resp.output()}
	if !resp.success() {
		out.Stderr = resp.get("Message")
		return out, &domain.DispatchError{Cause: domain.DispatchCauseRejected, Message: rejectMessage(resp)}
	}
	return out, nil
}

func (c *Client) nextID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, c.seq.Add(1))
}

func rejectMessage(r *message) string {
	if msg := r.get("Message"); msg != "" {
		return "engine rejected command: " + msg
	}
	return "engine rejected command"
}

func classify(ctx context.Context, err error, fallback domain.DispatchCause, msg string) error {
	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled) {
		return &domain.DispatchError{Cause: domain.DispatchCauseCanceled, Message: "request canceled before the engine answered", Err: err}
	}
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return &domain.DispatchError{Cause: domain.DispatchCauseTimeout, Message: "engine did not respond in time", Err: err}
	}
	return &domain.DispatchError{Cause: fallback, Message: msg, Err: err}
}

type session struct {
	conn net.Conn
	r    *bufio.Reader
}

// roundTrip writes cmd tagged with actionID and returns the first response
// carrying the same ActionID, skipping unrelated events.
func (s *session) roundTrip(cmd Command, actionID string) (*message, error) {
	if cmd.Get("ActionID") == "" {
		cmd = cmd.With("ActionID", actionID)
	}
	wire, err := cmd.Encode()
	if err != nil {
		return nil, err
	}
	if _, err := s.conn.Write(wire); err != nil {
		return nil, err
	}
	for {
		msg, err := readMessage(s.r)
		if err != nil {
			return nil, err
		}
		if msg.get("Response") == "" {
			continue
		}
		if id := msg.get("ActionID"); id != "" && id != actionID {
			continue
		}
		return msg, nil
	}
}
