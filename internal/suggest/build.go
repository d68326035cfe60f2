package suggest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"pkt.systems/cmdweb/core"
)

// Source names accepted by Build.
const (
	SourceStatic = "static"
	SourceFile   = "file"
	SourceRemote = "remote"
	SourceNone   = "none"
)

// Config selects and tunes the provider chain.
type Config struct {
	// Source is a comma separated list of static, file, remote or none.
	Source         string
	VocabularyFile string
	RemoteURL      string
	Limit          int
	Fuzzy          bool
	RatePerSecond  float64
	Burst          int
}

type closers []io.Closer

func (c closers) Close() error {
	var errs []error
	for _, closer := range c {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build assembles the provider chain. vocabulary seeds the static and file
// sources. The returned closer releases watchers; provider is nil for "none".
func Build(ctx context.Context, cfg Config, vocabulary []string) (core.Provider, io.Closer, error) {
	opts := Options{Limit: cfg.Limit, Fuzzy: cfg.Fuzzy}
	var sources []core.Provider
	var cleanup closers
	for _, name := range strings.Split(cfg.Source, ",") {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "", SourceStatic:
			sources = append(sources, NewStatic(vocabulary, opts))
		case SourceFile:
			file, err := OpenFileVocabulary(ctx, cfg.VocabularyFile, vocabulary, opts)
			if err != nil {
				_ = cleanup.Close()
				return nil, nil, fmt.Errorf("suggest file source: %w", err)
			}
			cleanup = append(cleanup, file)
			sources = append(sources, file)
		case SourceRemote:
			remote, err := NewRemote(cfg.RemoteURL, nil, cfg.Limit)
			if err != nil {
				_ = cleanup.Close()
				return nil, nil, err
			}
			sources = append(sources, NewShared(remote))
		case SourceNone:
			return nil, cleanup, nil
		default:
			_ = cleanup.Close()
			return nil, nil, fmt.Errorf("unknown suggest source %q", name)
		}
	}
	var provider core.Provider
	if len(sources) == 1 {
		provider = sources[0]
	} else {
		provider = NewMerged(cfg.Limit, sources...)
	}
	if cfg.RatePerSecond > 0 {
		provider = NewLimited(provider, cfg.RatePerSecond, cfg.Burst)
	}
	return provider, cleanup, nil
}
