package main

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pkt.systems/cmdweb"
	"pkt.systems/cmdweb/internal/appconfig"
	"pkt.systems/cmdweb/internal/eventbus"
	"pkt.systems/cmdweb/schema"
	"pkt.systems/cmdweb/sshserver"
	"pkt.systems/pslog"
)

type stdio struct {
	io.Reader
	io.Writer
}

func newReplCmd() *cobra.Command {
	var cfgPath string
	var prompt string
	var logFile string
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Run the simulated prompt in the current terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			inFd := int(os.Stdin.Fd())
			outFd := int(os.Stdout.Fd())
			if !term.IsTerminal(inFd) || !term.IsTerminal(outFd) {
				return errors.New("repl requires an interactive terminal")
			}

			// The screen owns stdout, so logs go to a file or nowhere.
			var logOut io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				logOut = f
			}
			logger := pslog.NewWithOptions(logOut, pslog.Options{Mode: pslog.ModeStructured, NoColor: true})
			ctx := pslog.ContextWithLogger(cmd.Context(), logger)

			bus := eventbus.New(logger)
			service, closer, err := cmdweb.NewService(ctx, toServerConfig(cfg), cmdweb.ServerDeps{Logger: logger, EventSink: bus})
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()
			defer func() { _ = service.Shutdown(context.WithoutCancel(ctx)) }()

			opened, err := service.OpenSession(ctx, schema.OpenSessionRequest{PromptName: prompt})
			if err != nil {
				return err
			}
			events, unsubscribe := bus.Subscribe(opened.SessionID)
			defer unsubscribe()

			oldState, err := term.MakeRaw(inFd)
			if err != nil {
				return err
			}
			defer func() { _ = term.Restore(inFd, oldState) }()

			width, height, err := term.GetSize(outFd)
			if err != nil {
				width, height = 80, 24
			}
			resize := make(chan sshserver.WindowSize, 1)
			stopResize := watchResize(ctx, outFd, resize)
			defer stopResize()

			logger.Info("repl session start", "session", opened.SessionID, "width", width, "height", height)
			return sshserver.RunTerminal(ctx, stdio{Reader: os.Stdin, Writer: os.Stdout}, service, opened.State, sshserver.TerminalOptions{
				Width:  width,
				Height: height,
				Events: events,
				Resize: resize,
			})
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&prompt, "prompt", "", "prompt name for this session")
	cmd.Flags().StringVar(&logFile, "log-file", "", "append logs to this file")
	return cmd
}

// sendLatest replaces any pending size with the newest one.
func sendLatest(out chan sshserver.WindowSize, size sshserver.WindowSize) {
	select {
	case out <- size:
		return
	default:
	}
	select {
	case <-out:
	default:
	}
	select {
	case out <- size:
	default:
	}
}
