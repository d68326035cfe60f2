package sshserver

import (
	"context"
	"errors"
	"io"
	"net"

	gliderssh "github.com/gliderlabs/ssh"

	"pkt.systems/cmdweb/core"
	"pkt.systems/cmdweb/internal/eventbus"
	"pkt.systems/cmdweb/internal/logx"
	"pkt.systems/cmdweb/schema"
	"pkt.systems/pslog"
)

// Server exposes terminal sessions over SSH. Every SSH session with a pty
// gets its own editor; no client authentication is performed.
type Server struct {
	Addr        string
	HostKeyPath string
	Listener    net.Listener
	Service     core.Service
	EventBus    *eventbus.Bus
	logger      pslog.Logger
}

// ListenAndServe starts the SSH server and shuts down on context cancellation.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.logger == nil {
		s.logger = pslog.Ctx(ctx)
	}
	if s.Service == nil {
		return errors.New("ssh server requires a service")
	}

	key, err := LoadHostKey(s.HostKeyPath)
	if err != nil {
		return err
	}

	server := &gliderssh.Server{
		Addr:    s.Addr,
		Handler: s.handleSession,
	}
	server.AddHostKey(key.Signer)
	if key.Ephemeral() {
		s.logger.Warn("ssh host key is ephemeral", "fingerprint", key.Fingerprint())
	}
	s.logger.Info("ssh server starting", "addr", s.Addr, "fingerprint", key.Fingerprint(), "generated", key.Generated)

	errCh := make(chan error, 1)
	go func() {
		if s.Listener != nil {
			errCh <- server.Serve(s.Listener)
			return
		}
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		_ = server.Close()
		return nil
	case err := <-errCh:
		if errors.Is(err, gliderssh.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleSession(sess gliderssh.Session) {
	log := s.logger
	if log == nil {
		log = pslog.Ctx(sess.Context())
	}
	log = logx.WithRemote(log, "ssh", sess.RemoteAddr().String())
	if user := sess.User(); user != "" {
		log = log.With("ssh_user", user)
	}
	if id := sess.Context().SessionID(); id != "" {
		log = log.With("ssh_session", id)
	}

	pty, winCh, ok := sess.Pty()
	if !ok {
		log.Info("ssh session rejected", "reason", "pty required")
		_, _ = io.WriteString(sess, "pty required\n")
		_ = sess.Exit(1)
		return
	}

	ctx := logx.ContextWithTransport(pslog.ContextWithLogger(sess.Context(), log), "ssh")
	opened, err := s.Service.OpenSession(ctx, schema.OpenSessionRequest{})
	if err != nil {
		log.Warn("ssh session open failed", "err", err)
		_, _ = io.WriteString(sess, "unable to open terminal: "+err.Error()+"\n")
		_ = sess.Exit(1)
		return
	}
	sessionID := opened.SessionID
	log = log.With("session", sessionID)
	ctx = logx.ContextWithSessionLogger(ctx, log, sessionID)
	defer func() {
		if _, err := s.Service.CloseSession(context.WithoutCancel(ctx), schema.CloseSessionRequest{SessionID: sessionID}); err != nil && !errors.Is(err, schema.ErrSessionNotFound) {
			log.Warn("ssh session close failed", "err", err)
		}
	}()

	var events <-chan schema.StateEvent
	if s.EventBus != nil {
		var unsubscribe func()
		events, unsubscribe = s.EventBus.Subscribe(sessionID)
		defer unsubscribe()
	}

	resized := make(chan WindowSize, 1)
	done := make(chan struct{})
	defer close(done)
	go forwardWindows(winCh, resized, done)

	log.Info("ssh session opened", "term", pty.Term)
	ui := newTerminalSession(sess, s.Service, opened.State, events)
	ui.SetSize(pty.Window.Width, pty.Window.Height)
	_ = ui.Run(ctx, resized)
	log.Info("ssh session closed", "term", pty.Term)
	_ = sess.Exit(0)
}

// forwardWindows keeps only the latest size when the terminal loop is busy.
func forwardWindows(in <-chan gliderssh.Window, out chan WindowSize, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case win, ok := <-in:
			if !ok {
				return
			}
			size := WindowSize{Width: win.Width, Height: win.Height}
			select {
			case out <- size:
			default:
				select {
				case <-out:
				default:
				}
				select {
				case out <- size:
				default:
				}
			}
		}
	}
}
