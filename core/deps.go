package core

import (
	"context"

	"pkt.systems/cmdweb/schema"
	"pkt.systems/pslog"
)

// Executor runs a submitted command line. It must not depend on editor
// state beyond the request.
type Executor interface {
	Execute(ctx context.Context, req schema.CommandRequest) schema.CommandResult
}

// Provider looks up completions for a prefix. The prefix is non-empty and
// contains no whitespace. Implementations may be slow or fail.
type Provider interface {
	Lookup(ctx context.Context, prefix string) ([]string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, prefix string) ([]string, error)

// Lookup calls f.
func (f ProviderFunc) Lookup(ctx context.Context, prefix string) ([]string, error) {
	return f(ctx, prefix)
}

// BannerFunc builds the transcript lines shown after open and clear.
type BannerFunc func(prompt string) []schema.OutputLine

// EditorDeps captures collaborators for one editor.
type EditorDeps struct {
	SessionID schema.SessionID
	Executor  Executor
	// Provider is optional; without one the suggestion list stays empty.
	Provider Provider
	Banner   BannerFunc
	Sink     EventSink
	Logger   pslog.Logger

	after afterFunc
}

// ServiceDeps captures dependencies for the editor service.
type ServiceDeps struct {
	Executor  Executor
	Provider  Provider
	Banner    BannerFunc
	EventSink EventSink
	Logger    pslog.Logger

	after afterFunc
}
