package cmdweb

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"pkt.systems/cmdweb/core"
	"pkt.systems/cmdweb/httpapi"
	"pkt.systems/cmdweb/internal/command"
	"pkt.systems/cmdweb/internal/eventbus"
	"pkt.systems/cmdweb/internal/suggest"
	"pkt.systems/cmdweb/schema"
	"pkt.systems/cmdweb/sshserver"
	"pkt.systems/pslog"
)

// Server composes the HTTP and SSH front ends over one editor service.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	Editor  schema.EditorConfig
	Suggest suggest.Config
	HTTP    httpapi.Config
	SSH     sshserver.Config
	// Location is used by the date and time commands; nil means local time.
	Location *time.Location
}

// ServerDeps captures optional overrides used to build the server.
type ServerDeps struct {
	Logger pslog.Logger
	// Executor replaces the built-in command dispatcher.
	Executor core.Executor
	// Provider replaces the configured suggestion sources.
	Provider core.Provider
	// EventSink receives every state event in addition to the front ends.
	EventSink core.EventSink
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableHTTP bool
	enableSSH  bool
}

// WithHTTP enables the HTTP API/UI server.
func WithHTTP() ServerOption {
	return func(o *serverOptions) { o.enableHTTP = true }
}

// WithSSH enables the SSH server.
func WithSSH() ServerOption {
	return func(o *serverOptions) { o.enableSSH = true }
}

// NewService builds the editor service with the built-in dispatcher and the
// configured suggestion chain. The closer releases suggestion watchers.
func NewService(ctx context.Context, cfg ServerConfig, deps ServerDeps) (core.Service, io.Closer, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	dispatcher := command.NewDispatcher(command.Config{
		DisableAuditLogging: cfg.Editor.DisableAuditLogging,
		Location:            cfg.Location,
	})
	executor := deps.Executor
	if executor == nil {
		executor = dispatcher
	}
	provider := deps.Provider
	var closer io.Closer = nopCloser{}
	if provider == nil {
		built, cleanup, err := suggest.Build(ctx, cfg.Suggest, dispatcher.Vocabulary())
		if err != nil {
			return nil, nil, err
		}
		provider = built
		if cleanup != nil {
			closer = cleanup
		}
	}
	service, err := core.NewService(cfg.Editor, core.ServiceDeps{
		Executor:  executor,
		Provider:  provider,
		Banner:    dispatcher.Banner,
		EventSink: deps.EventSink,
		Logger:    deps.Logger,
	})
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return service, closer, nil
}

// New constructs a composable cmdweb server.
func New(cfg ServerConfig, deps ServerDeps, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if !options.enableHTTP && !options.enableSSH {
		return nil, errors.New("no services enabled")
	}

	var hub *httpapi.Hub
	var bus *eventbus.Bus
	if options.enableHTTP {
		hub = httpapi.NewHub(cfg.HTTP.HubHistory)
	}
	if options.enableSSH {
		bus = eventbus.New(deps.Logger)
	}
	sinks := make([]core.EventSink, 0, 3)
	if deps.EventSink != nil {
		sinks = append(sinks, deps.EventSink)
	}
	if hub != nil {
		sinks = append(sinks, hub)
	}
	if bus != nil {
		sinks = append(sinks, bus)
	}
	serviceDeps := deps
	switch len(sinks) {
	case 0:
		serviceDeps.EventSink = nil
	case 1:
		serviceDeps.EventSink = sinks[0]
	default:
		serviceDeps.EventSink = eventFanout{sinks: sinks}
	}

	service, closer, err := NewService(context.Background(), cfg, serviceDeps)
	if err != nil {
		return nil, err
	}

	var httpSrv *httpapi.Server
	var sshSrv *sshserver.Server
	if options.enableHTTP {
		httpSrv = httpapi.NewServer(cfg.HTTP, service, hub)
	}
	if options.enableSSH {
		sshSrv = &sshserver.Server{
			Addr:        cfg.SSH.Addr,
			HostKeyPath: cfg.SSH.HostKeyPath,
			Service:     service,
			EventBus:    bus,
		}
	}

	return &compositeServer{
		cfg:     cfg,
		options: options,
		service: service,
		closer:  closer,
		httpSrv: httpSrv,
		sshSrv:  sshSrv,
	}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type compositeServer struct {
	cfg     ServerConfig
	options serverOptions
	service core.Service
	closer  io.Closer
	httpSrv *httpapi.Server
	sshSrv  *sshserver.Server
	logger  pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	started bool
	stopped bool
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 2)
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info(
		"server start",
		"http", s.options.enableHTTP,
		"ssh", s.options.enableSSH,
		"http_addr", s.cfg.HTTP.Addr,
		"http_base_url", s.cfg.HTTP.BaseURL,
		"http_base_path", s.cfg.HTTP.BasePath,
		"ssh_addr", s.cfg.SSH.Addr,
		"suggest_source", s.cfg.Suggest.Source,
	)
	if s.options.enableHTTP && s.httpSrv != nil {
		s.httpSrv.SetBaseContext(s.ctx)
		go func() {
			if err := httpapi.ListenAndServe(s.ctx, s.cfg.HTTP.Addr, s.httpSrv.Handler()); err != nil {
				log.Error("http server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	if s.options.enableSSH && s.sshSrv != nil {
		go func() {
			if err := s.sshSrv.ListenAndServe(s.ctx); err != nil {
				log.Error("ssh server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	return nil
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
			_ = s.Stop(context.Background())
			return err
		}
		return nil
	}
}

// Stop cancels the front ends, then closes every open session and the
// suggestion sources.
func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	stopped := s.stopped
	s.stopped = true
	log := s.logger
	s.mu.Unlock()
	if !started || stopped {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log.Info("server stop requested")
	if cancel != nil {
		cancel()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var errs []error
	if s.service != nil {
		if err := s.service.Shutdown(ctx); err != nil {
			log.Warn("server session shutdown failed", "err", err)
			errs = append(errs, err)
		}
	}
	if s.closer != nil {
		if err := s.closer.Close(); err != nil {
			log.Warn("server suggestion close failed", "err", err)
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
