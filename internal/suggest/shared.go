package suggest

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
	"pkt.systems/cmdweb/core"
)

const sharedLookupTimeout = 10 * time.Second

// Shared collapses concurrent lookups for the same prefix into one call to
// the wrapped provider. Each caller still honors its own context.
type Shared struct {
	next  core.Provider
	group singleflight.Group
}

// NewShared wraps next.
func NewShared(next core.Provider) *Shared {
	return &Shared{next: next}
}

// Lookup joins an in-flight lookup for prefix or starts one.
func (s *Shared) Lookup(ctx context.Context, prefix string) ([]string, error) {
	ch := s.group.DoChan(prefix, func() (any, error) {
		// The call outlives any single caller, so it gets its own deadline.
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLookupTimeout)
		defer cancel()
		return s.next.Lookup(callCtx, prefix)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		words, _ := res.Val.([]string)
		return append([]string(nil), words...), nil
	}
}
