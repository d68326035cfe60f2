// Package suggest provides completion sources for the line editor.
package suggest

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// DefaultLimit caps the number of candidates returned by a lookup.
const DefaultLimit = 8

// Options tunes ranking.
type Options struct {
	// Limit caps results; <= 0 uses DefaultLimit.
	Limit int
	// Fuzzy adds subsequence matches after the prefix matches.
	Fuzzy bool
}

// Static ranks candidates from an in-memory vocabulary.
type Static struct {
	mu    sync.RWMutex
	words []string
	opts  Options
}

// NewStatic returns a provider over words. Duplicates and blanks are dropped.
func NewStatic(words []string, opts Options) *Static {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	s := &Static{opts: opts}
	s.Replace(words)
	return s
}

// Replace swaps the vocabulary.
func (s *Static) Replace(words []string) {
	cleaned := normalizeWords(words)
	s.mu.Lock()
	s.words = cleaned
	s.mu.Unlock()
}

// Words returns a copy of the vocabulary.
func (s *Static) Words() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.words...)
}

// Lookup returns prefix matches in vocabulary order, then fuzzy matches by
// descending score when enabled.
func (s *Static) Lookup(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	words := s.words
	s.mu.RUnlock()
	return rank(prefix, words, s.opts), nil
}

type scored struct {
	word  string
	score int
	order int
}

func rank(prefix string, words []string, opts Options) []string {
	lower := strings.ToLower(prefix)
	out := make([]string, 0, opts.Limit)
	var fuzzy []scored
	for i, word := range words {
		if strings.HasPrefix(strings.ToLower(word), lower) {
			out = append(out, word)
			continue
		}
		if !opts.Fuzzy {
			continue
		}
		if score, ok := fuzzyScore(prefix, word); ok {
			fuzzy = append(fuzzy, scored{word: word, score: score, order: i})
		}
	}
	sort.SliceStable(fuzzy, func(i, j int) bool {
		if fuzzy[i].score != fuzzy[j].score {
			return fuzzy[i].score > fuzzy[j].score
		}
		return fuzzy[i].order < fuzzy[j].order
	})
	for _, match := range fuzzy {
		out = append(out, match.word)
	}
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

func normalizeWords(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, word := range words {
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		out = append(out, word)
	}
	return out
}
