//go:build unix

package main

import (
	"context"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"pkt.systems/cmdweb/sshserver"
)

func watchResize(ctx context.Context, fd int, out chan sshserver.WindowSize) func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, unix.SIGWINCH)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-sigCh:
				ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
				if err != nil {
					width, height, err := term.GetSize(fd)
					if err != nil {
						continue
					}
					sendLatest(out, sshserver.WindowSize{Width: width, Height: height})
					continue
				}
				sendLatest(out, sshserver.WindowSize{Width: int(ws.Col), Height: int(ws.Row)})
			}
		}
	}()
	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}
