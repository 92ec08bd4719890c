package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"local-business-hub/middleware/ratelimit/domain"
)

// Service é o governor de janela fixa: decide se a requisição de um cliente
// entra e informa o estado do limite.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Service struct {
	store  domain.CounterStore
	config domain.Config
	now    func() time.Time
}

type ServiceOption func(*Service)

// WithNow troca o relógio (testes).
func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService valida a configuração padrão e retorna o governor.
func NewService(store domain.CounterStore, cfg domain.Config, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("counter store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{store: store, config: cfg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) Config() domain.Config { return s.config }

// Decide aplica a configuração padrão do serviço.
func (s *Service) Decide(ctx context.Context, key domain.Key) (domain.Decision, error) {
	return s.CheckAndConsume(ctx, key, s.config)
}

// CheckAndConsume conta a requisição (sempre, mesmo acima do limite) e decide.
func (s *Service) CheckAndConsume(ctx context.Context, key domain.Key, cfg domain.Config) (domain.Decision, error) {
	if err := cfg.Validate(); err != nil {
		return domain.Decision{}, err
	}
	key = domain.Key(strings.TrimSpace(string(key)))
	if key == "" {
		return domain.Decision{}, domain.ErrEmptyClientID
	}

	now := s.now()
	rec, err := s.store.Consume(ctx, key, cfg.Window, now)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("%w: %w", domain.ErrGovernorFailure, err)
	}

	return domain.NewDecision(cfg, rec, now), nil
}
