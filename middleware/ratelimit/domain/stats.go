package domain

import (
	"context"
	"time"
)

// StatsEvent registra uma decisão do governor para fins de observabilidade.
//
// Method/Path são strings genéricas, sem acoplar a net/http.
// Cuidado com cardinalidade ao persistir Key/Path (Redis pode crescer muito).
type StatsEvent struct {
	Key     Key
	Allowed bool
	// FailedOpen marca requisições liberadas porque o governor falhou.
	FailedOpen bool

	Method string
	Path   string

	At time.Time
}

// StatsStore persiste estatísticas das decisões.
// O middleware trata erro como best-effort: nunca derruba a requisição.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
