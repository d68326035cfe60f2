//go:build !unix

package main

import (
	"context"

	"pkt.systems/cmdweb/sshserver"
)

// watchResize is a no-op where SIGWINCH does not exist.
func watchResize(context.Context, int, chan sshserver.WindowSize) func() {
	return func() {}
}
