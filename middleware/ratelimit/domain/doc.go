// Package domain define contratos e tipos de domínio para rate limit e concorrência.
//
// Este pacote não depende de net/http nem de implementações concretas.
// RateRecord, Config e Decision descrevem o limitador de janela fixa;
// CounterStore é o contrato do armazenamento dos contadores (memória ou Redis).
package domain
