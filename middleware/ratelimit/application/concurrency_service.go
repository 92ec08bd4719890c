package application

import (
	"context"
	"sync/atomic"
	"time"

	"local-business-hub/middleware/ratelimit/domain"
)

// ConcurrencyService controla quantas requisições estão em andamento no gateway.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration

	inFlight atomic.Int64
}

// Acquire tenta pegar uma vaga.
// AcquireTimeout <= 0 espera até o ctx cancelar; > 0 desiste após o timeout.
// Com ok=false nenhuma vaga foi adquirida e release é nil.
func (s *ConcurrencyService) Acquire(ctx context.Context) (func(), bool) {
	if s.Pool == nil {
		return func() {}, true
	}

	acqCtx := ctx
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, ok := s.Pool.Acquire(acqCtx)
	if !ok {
		return nil, false
	}

	s.inFlight.Add(1)
	return func() {
		s.inFlight.Add(-1)
		release()
	}, true
}

// InFlight retorna quantas vagas estão ocupadas agora.
func (s *ConcurrencyService) InFlight() int64 { return s.inFlight.Load() }
