// Package greeting is a small greeting service the orchestrator calls into.
// It keeps one greeting in memory and exposes get_greeting and set_greeting.
package greeting

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/crosscall/pkg/contract"
	"github.com/aretw0/crosscall/pkg/domain"
	"github.com/aretw0/crosscall/pkg/ports"
)

// DefaultGreeting is the greeting a new service starts with.
const DefaultGreeting = "Hello"

// Gas burnt by each method on top of the host's base charge.
const (
	GetCost = domain.TGas / 2
	SetCost = domain.TGas
)

// ErrUnavailable is returned while the service is switched off.
var ErrUnavailable = errors.New("greeting service unavailable")

// Service is the greeting contract. Safe for concurrent use.
type Service struct {
	mu       sync.RWMutex
	greeting string
	down     bool
}

// New creates a service holding DefaultGreeting.
func New() *Service {
	return &Service{greeting: DefaultGreeting}
}

// Greeting returns the stored greeting.
func (s *Service) Greeting() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.greeting
}

// SetAvailable switches the service on or off. While off every call fails.
func (s *Service) SetAvailable(up bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = !up
}

// Invoke implements ports.Contract.
func (s *Service) Invoke(ctx context.Context, env ports.Env, method string, args string) (domain.Return, error) {
	s.mu.RLock()
	down := s.down
	s.mu.RUnlock()
	if down {
		return domain.Return{}, ErrUnavailable
	}

	switch method {
	case contract.MethodGetGreeting:
		if err := env.UseGas(GetCost); err != nil {
			return domain.Return{}, err
		}
		return domain.ValueOf(s.Greeting())

	case contract.MethodSetGreeting:
		if err := env.UseGas(SetCost); err != nil {
			return domain.Return{}, err
		}
		var in contract.SetGreetingArgs
		if err := contract.DecodeArgs(args, &in); err != nil {
			return domain.Return{}, err
		}
		s.mu.Lock()
		s.greeting = in.Greeting
		s.mu.Unlock()
		env.Log("saving greeting", "greeting", in.Greeting)
		return domain.ValueOf(nil)
	}

	return domain.Return{}, fmt.Errorf("%s.%s: %w", env.Self(), method, domain.ErrMethodNotFound)
}
