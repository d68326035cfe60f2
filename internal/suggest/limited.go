package suggest

import (
	"context"

	"golang.org/x/time/rate"
	"pkt.systems/cmdweb/core"
	"pkt.systems/cmdweb/schema"
)

// Limited rejects lookups beyond a token-bucket rate. Rejected lookups fail
// fast with schema.ErrRateLimited rather than queueing behind the limiter.
type Limited struct {
	next    core.Provider
	limiter *rate.Limiter
}

// NewLimited wraps next with perSecond lookups and the given burst.
// perSecond <= 0 disables limiting.
func NewLimited(next core.Provider, perSecond float64, burst int) *Limited {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limited{next: next, limiter: rate.NewLimiter(limit, burst)}
}

// Lookup forwards to the wrapped provider when a token is available.
func (l *Limited) Lookup(ctx context.Context, prefix string) ([]string, error) {
	if !l.limiter.Allow() {
		return nil, schema.ErrRateLimited
	}
	return l.next.Lookup(ctx, prefix)
}
