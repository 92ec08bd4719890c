// Package application contém os casos de uso (regras de aplicação) para rate limit
// e limite de concorrência.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Service.CheckAndConsume(ctx, key, cfg) retorna uma Decision
// (allowed, limit, remaining, reset em segundos).
package application
