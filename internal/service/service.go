// Package service implements the call-session lifecycle: creating sessions,
// originating calls, serving session state and handling completion.
package service

import (
	"sync"

	"github.com/xiaot623/gogo/callcontrol/internal/adapter/asterisk"
	"github.com/xiaot623/gogo/callcontrol/internal/adapter/notifier"
	"github.com/xiaot623/gogo/callcontrol/internal/config"
	"github.com/xiaot623/gogo/callcontrol/internal/policy"
	"github.com/xiaot623/gogo/callcontrol/internal/repository"
)

type Service struct {
	store        store.Store
	dispatcher   *Dispatcher
	notifier     notifier.Notifier
	config       *config.Config
	policyEngine *policy.Engine
	locks        *keyedMutex
	pending      sync.WaitGroup
}

func New(store store.Store, runner asterisk.CommandRunner, notifier notifier.Notifier, cfg *config.Config, policyEngine *policy.Engine) *Service {
	return &Service{
		store:        store,
		dispatcher:   NewDispatcher(runner, cfg),
		notifier:     notifier,
		config:       cfg,
		policyEngine: policyEngine,
		locks:        newKeyedMutex(),
	}
}

// Wait blocks until in-flight completion notifications have finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

// keyedMutex serializes read-modify-write cycles per session id.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
