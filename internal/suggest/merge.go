package suggest

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
	"pkt.systems/cmdweb/core"
	"pkt.systems/pslog"
)

// Merged queries several providers concurrently and concatenates their
// answers in provider order, dropping duplicates. A failing provider only
// removes its own candidates; the lookup fails when every provider fails.
type Merged struct {
	providers []core.Provider
	limit     int
}

// NewMerged combines providers.
func NewMerged(limit int, providers ...core.Provider) *Merged {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Merged{providers: providers, limit: limit}
}

// Lookup fans out to every provider.
func (m *Merged) Lookup(ctx context.Context, prefix string) ([]string, error) {
	results := make([][]string, len(m.providers))
	errs := make([]error, len(m.providers))
	var g errgroup.Group
	for i, provider := range m.providers {
		g.Go(func() error {
			results[i], errs[i] = provider.Lookup(ctx, prefix)
			return nil
		})
	}
	_ = g.Wait()

	var merged []string
	failures := 0
	for i, err := range errs {
		if err != nil {
			failures++
			pslog.Ctx(ctx).Debug("suggest source failed", "source", i, "err", err)
			continue
		}
		merged = append(merged, results[i]...)
	}
	if len(m.providers) > 0 && failures == len(m.providers) {
		return nil, errors.Join(errs...)
	}
	out := normalizeWords(merged)
	if len(out) > m.limit {
		out = out[:m.limit]
	}
	return out, nil
}
