// Package ratelimit bounds how many API requests one client may make per
// window. The in-memory limiter is the default; a Redis backed sliding window
// is used when a Redis address is configured.
package ratelimit

import (
	"context"
	"time"
)

// Result contains the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	Limit     int
}

type Limiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
}
