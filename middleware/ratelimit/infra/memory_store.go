package infra

import (
	"context"
	"sync"
	"time"

	"local-business-hub/middleware/ratelimit/domain"
)

// MemoryStore guarda os contadores de janela fixa em um mapa local ao processo.
//
// Cada instância do gateway tem o seu próprio mapa: em deploy com várias
// instâncias os limites não são compartilhados (use RedisStore nesse caso).
type MemoryStore struct {
	mu      sync.Mutex
	records map[domain.Key]*domain.RateRecord

	cleanupEvery time.Duration
	maxEntries   int
	now          func() time.Time
}

type MemoryStoreOption func(*MemoryStore)

// WithCleanupEvery define o intervalo do janitor. 0 desliga a limpeza periódica.
func WithCleanupEvery(d time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) { s.cleanupEvery = d }
}

// WithMaxEntries faz um Sweep antes de inserir um cliente novo quando o mapa
// já tem n ou mais registros. 0 desliga.
func WithMaxEntries(n int) MemoryStoreOption {
	return func(s *MemoryStore) { s.maxEntries = n }
}

// WithClock troca o relógio usado pelo janitor.
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		records:      make(map[domain.Key]*domain.RateRecord),
		cleanupEvery: time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ domain.CounterStore = (*MemoryStore)(nil)

func (s *MemoryStore) CleanupEvery() time.Duration { return s.cleanupEvery }

// Consume implementa domain.CounterStore.
func (s *MemoryStore) Consume(_ context.Context, key domain.Key, window time.Duration, now time.Time) (domain.RateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		if s.maxEntries > 0 && len(s.records) >= s.maxEntries {
			s.sweepLocked(now)
		}
		rec = &domain.RateRecord{ClientID: key, ResetAt: now.Add(window)}
		s.records[key] = rec
	}

	if rec.Expired(now) {
		rec.Count = 0
		rec.ResetAt = now.Add(window)
	}
	rec.Count++

	return *rec, nil
}

// Peek devolve o registro atual sem consumir.
func (s *MemoryStore) Peek(key domain.Key) (domain.RateRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return domain.RateRecord{}, false
	}
	return *rec, true
}

// Reset remove o contador de um cliente; o próximo Consume abre uma janela nova.
func (s *MemoryStore) Reset(_ context.Context, key domain.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Sweep remove registros cuja janela já terminou e retorna quantos saíram.
// Não altera decisões: um cliente expirado seria reiniciado no próximo Consume de qualquer forma.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(now)
}

func (s *MemoryStore) sweepLocked(now time.Time) int {
	removed := 0
	for k, rec := range s.records {
		if rec.Expired(now) {
			delete(s.records, k)
			removed++
		}
	}
	return removed
}

// StartJanitor inicia uma goroutine que chama Sweep periodicamente.
// Pare cancelando o contexto. onSweep (opcional) recebe o total removido a cada ciclo.
func (s *MemoryStore) StartJanitor(ctx context.Context, onSweep func(removed int)) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				removed := s.Sweep(s.now())
				if onSweep != nil {
					onSweep(removed)
				}
			}
		}
	}()
}
