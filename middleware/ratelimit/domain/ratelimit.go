package domain

// Camada de domínio do rate limit (janela fixa).
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"context"
	"fmt"
	"math"
	"time"
)

type Key string

// Config descreve o limite: no máximo MaxRequests por Window.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

// DefaultConfig é o limite usado pelo hub: 10 requisições a cada 10 segundos.
func DefaultConfig() Config {
	return Config{MaxRequests: 10, Window: 10 * time.Second}
}

func (c Config) Validate() error {
	if c.MaxRequests <= 0 {
		return fmt.Errorf("%w: max requests must be > 0, got %d", ErrInvalidConfiguration, c.MaxRequests)
	}
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be > 0, got %s", ErrInvalidConfiguration, c.Window)
	}
	return nil
}

// RateRecord é o estado do contador de um cliente na janela corrente.
//
// Count é incrementado mesmo acima do limite (conta tentativas, não só admissões).
type RateRecord struct {
	ClientID Key
	Count    int64
	ResetAt  time.Time
}

// Expired indica que a janela do registro já terminou em now.
func (r RateRecord) Expired(now time.Time) bool {
	return now.After(r.ResetAt)
}

// CounterStore é o dono exclusivo do mapa cliente -> RateRecord.
//
// Consume executa o read-modify-write de forma atômica:
// cria o registro se ausente, reinicia a janela se expirada e incrementa Count.
// Retorna uma cópia do registro já atualizado.
type CounterStore interface {
	Consume(ctx context.Context, key Key, window time.Duration, now time.Time) (RateRecord, error)
}

type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetSeconds é ceil(ResetAt - now) em segundos; também vai no Retry-After.
	ResetSeconds int
	Count        int64
}

// NewDecision deriva a decisão a partir do registro já consumido.
func NewDecision(cfg Config, rec RateRecord, now time.Time) Decision {
	remaining := int64(cfg.MaxRequests) - rec.Count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:      rec.Count <= int64(cfg.MaxRequests),
		Limit:        cfg.MaxRequests,
		Remaining:    int(remaining),
		ResetSeconds: ceilSeconds(rec.ResetAt.Sub(now)),
		Count:        rec.Count,
	}
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
