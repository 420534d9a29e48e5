package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/xiaot623/gogo/callcontrol/internal/adapter/asterisk"
	"github.com/xiaot623/gogo/callcontrol/internal/config"
	"github.com/xiaot623/gogo/callcontrol/internal/domain"
)

// Dispatcher turns sessions and channel requests into engine commands.
type Dispatcher struct {
	runner  asterisk.CommandRunner
	trunk   string
	timeout time.Duration
}

// NewDispatcher creates a dispatcher bound to runner.
func NewDispatcher(runner asterisk.CommandRunner, cfg *config.Config) *Dispatcher {
	timeout := cfg.EngineTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		runner:  runner,
		trunk:   cfg.Trunk,
		timeout: timeout,
	}
}

// Originate asks the engine to place the call. It returns once the engine
// has accepted or rejected the origination, not when the call is answered.
func (d *Dispatcher) Originate(ctx context.Context, session *domain.CallSession) error {
	cmd, err := asterisk.OriginateCommand(asterisk.OriginateParams{
		PhoneNumber: session.PhoneNumber,
		Trunk:       d.trunk,
		Context:     session.Context,
		Extension:   session.Extension,
		CallerID:    session.CallerID,
		SessionID:   session.SessionID,
		Script:      session.Script,
		CallbackURL: session.CallbackURL,
	})
	if err != nil {
		return &domain.DispatchError{Cause: domain.DispatchCauseProtocol, Message: "could not build originate command", Err: err}
	}

	log.Printf("Originating session %s to %s via %s@%s", session.SessionID, session.PhoneNumber, session.Extension, session.Context)
	_, err = d.run(ctx, cmd)
	return err
}

// ListChannels returns the engine's active channel snapshot.
func (d *Dispatcher) ListChannels(ctx context.Context) (string, error) {
	out, err := d.run(ctx, asterisk.ShowChannelsCommand())
	if err != nil {
		return "", err
	}
	return out.Stdout, nil
}

// Hangup requests hangup of an engine channel.
func (d *Dispatcher) Hangup(ctx context.Context, channel string) (string, error) {
	cmd, err := asterisk.HangupCommand(channel)
	if err != nil {
		return "", domain.NewValidationError("channel", "channel name is invalid")
	}
	log.Printf("Requesting hangup of channel %s", channel)
	out, err := d.run(ctx, cmd)
	if err != nil {
		return "", err
	}
	return out.Stdout, nil
}

func (d *Dispatcher) run(ctx context.Context, cmd asterisk.Command) (*asterisk.Output, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	out, err := d.runner.Run(ctx, cmd)
	if err != nil {
		return nil, toDispatchError(ctx, err)
	}
	if out == nil {
		out = &asterisk.Output{}
	}
	return out, nil
}

func toDispatchError(ctx context.Context, err error) error {
	var de *domain.DispatchError
	if errors.As(err, &de) {
		return de
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return &domain.DispatchError{Cause: domain.DispatchCauseCanceled, Message: "request canceled before the engine answered", Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &domain.DispatchError{Cause: domain.DispatchCauseTimeout, Message: "engine did not respond in time", Err: err}
	}
	return &domain.DispatchError{Cause: domain.DispatchCauseUnreachable, Message: "engine invocation failed", Err: err}
}
