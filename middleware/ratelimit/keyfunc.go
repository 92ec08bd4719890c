package ratelimit

import (
	"net/http"
	"strings"
)

// DefaultFallbackAddr é usado quando a requisição não traz nenhum endereço de origem.
const DefaultFallbackAddr = "127.0.0.1"

type KeyFunc func(r *http.Request) string

// DefaultKeyFunc identifica o cliente na ordem:
// header explícito (se configurado), primeiro IP do X-Forwarded-For,
// X-Real-IP e por fim o endereço fixo de fallback.
func DefaultKeyFunc(keyHeader, fallback string) KeyFunc {
	if fallback == "" {
		fallback = DefaultFallbackAddr
	}
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}

		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}

		return fallback
	}
}
