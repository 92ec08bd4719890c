package ratelimit

import "strconv"

const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

func formatInt(v int) string { return strconv.Itoa(v) }
