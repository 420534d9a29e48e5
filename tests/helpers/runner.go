package helpers

import (
	"context"
	"sync"

	"github.com/xiaot623/gogo/callcontrol/internal/adapter/asterisk"
	"github.com/xiaot623/gogo/callcontrol/internal/domain"
)

// FakeRunner records engine commands instead of executing them.
type FakeRunner struct {
	mu       sync.Mutex
	commands []asterisk.Command

	// Handler, when set, decides the result of each command.
	Handler func(ctx context.Context, cmd asterisk.Command) (*asterisk.Output, error)
}

func (f *FakeRunner) Run(ctx context.Context, cmd asterisk.Command) (*asterisk.Output, error) {
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	handler := f.Handler
	f.mu.Unlock()

	if handler != nil {
		return handler(ctx, cmd)
	}
	return &asterisk.Output{Stdout: "Success"}, nil
}

func (f *FakeRunner) Commands() []asterisk.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]asterisk.Command(nil), f.commands...)
}

// RejectingRunner returns a handler that fails every command with cause.
func RejectingRunner(cause domain.DispatchCause, message string) func(context.Context, asterisk.Command) (*asterisk.Output, error) {
	return func(context.Context, asterisk.Command) (*asterisk.Output, error) {
		return nil, &domain.DispatchError{Cause: cause, Message: message}
	}
}

// HangingRunner blocks until the context ends.
func HangingRunner(ctx context.Context, _ asterisk.Command) (*asterisk.Output, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// FakeNotifier records notified sessions.
type FakeNotifier struct {
	mu       sync.Mutex
	sessions []*domain.CallSession
	Err      error
}

func (f *FakeNotifier) Notify(_ context.Context, session *domain.CallSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, session)
	return f.Err
}

func (f *FakeNotifier) Sessions() []*domain.CallSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.CallSession(nil), f.sessions...)
}
