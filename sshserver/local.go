package sshserver

import (
	"context"
	"errors"
	"io"

	"pkt.systems/cmdweb/core"
	"pkt.systems/cmdweb/schema"
)

// TerminalOptions configures RunTerminal.
type TerminalOptions struct {
	Width  int
	Height int
	// Events carries state events for the session, usually from an eventbus
	// subscription. Without it suggestions only appear on the next key.
	Events <-chan schema.StateEvent
	Resize <-chan WindowSize
}

// RunTerminal drives an already opened session over rw, which must be a raw
// mode terminal stream. It returns when the user exits or ctx ends.
func RunTerminal(ctx context.Context, rw io.ReadWriter, service core.Service, state schema.EditorSnapshot, opts TerminalOptions) error {
	if service == nil {
		return errors.New("terminal requires a service")
	}
	if err := schema.ValidateSessionID(state.SessionID); err != nil {
		return err
	}
	ui := newTerminalSession(rw, service, state, opts.Events)
	ui.SetSize(opts.Width, opts.Height)
	return ui.Run(ctx, opts.Resize)
}
