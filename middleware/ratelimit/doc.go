// Package ratelimit fornece adapters HTTP (net/http) para o rate limit de janela fixa
// e para o limite de concorrência do gateway do Local Business Hub.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos (RateRecord, Config, Decision, CounterStore)
//   - application: o governor (CheckAndConsume) e a aquisição de vagas com timeout
//   - infra: MemoryStore, RedisStore, estatísticas e semáforo
//   - ratelimit (este pacote): middlewares HTTP, extração de chave, exceções de assets
//
// Fluxo por requisição:
//
//  1. Caminhos de assets estáticos passam direto
//  2. Extrai a chave do cliente (X-Forwarded-For, X-Real-IP, fallback)
//  3. Chama o governor e escreve X-RateLimit-Limit/Remaining/Reset
//  4. Se bloqueado, responde 429 com Retry-After
//  5. Se o governor falhar, loga e deixa passar (fail open)
//
// O modo memória não compartilha contadores entre instâncias; para isso
// configure RATE_STORE=redis no binário cmd/gateway.
package ratelimit
