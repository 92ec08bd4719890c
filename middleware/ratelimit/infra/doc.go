// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - MemoryStore: contadores de janela fixa em memória, com janitor
//   - RedisStore: contadores de janela fixa compartilhados via Redis (script Lua)
//   - MemoryStatsStore / RedisStatsStore: estatísticas allow/deny
//   - ChanPool: semáforo simples para limite de concorrência
package infra
