package integration_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"

	"pkt.systems/cmdweb/sshserver"
)

func TestSSHSession(t *testing.T) {
	requireLong(t)
	ts := newTestServer(t)
	addr, stop := startSSHTestServer(t, ts)
	defer stop()

	client := dialSSH(t, addr)
	defer client.Close()
	stdin, output, session := startSSHSession(t, client)
	defer session.Close()

	expectOutput(t, output, "(Prompt: TEST)", 5*time.Second)

	if _, err := fmt.Fprint(stdin, "echo over ssh\r"); err != nil {
		t.Fatal(err)
	}
	expectOutput(t, output, "over ssh", 5*time.Second)

	if _, err := fmt.Fprint(stdin, "hel"); err != nil {
		t.Fatal(err)
	}
	expectOutput(t, output, "help", 5*time.Second)

	// Ctrl-U clears the line, then Ctrl-D on an empty line leaves.
	if _, err := fmt.Fprint(stdin, "\x15\x04"); err != nil {
		t.Fatal(err)
	}
	waitForSessionClose(t, session)
}

func TestSSHSessionsAreIndependent(t *testing.T) {
	requireLong(t)
	ts := newTestServer(t)
	addr, stop := startSSHTestServer(t, ts)
	defer stop()

	clientA := dialSSH(t, addr)
	defer clientA.Close()
	stdinA, outputA, sessionA := startSSHSession(t, clientA)
	defer sessionA.Close()

	clientB := dialSSH(t, addr)
	defer clientB.Close()
	_, outputB, sessionB := startSSHSession(t, clientB)
	defer sessionB.Close()

	expectOutput(t, outputA, "(Prompt: TEST)", 5*time.Second)
	expectOutput(t, outputB, "(Prompt: TEST)", 5*time.Second)

	if _, err := fmt.Fprint(stdinA, "echo only-in-a\r"); err != nil {
		t.Fatal(err)
	}
	expectOutput(t, outputA, "only-in-a", 5*time.Second)
	time.Sleep(200 * time.Millisecond)
	if strings.Contains(outputB.String(), "only-in-a") {
		t.Fatalf("session B saw output from session A")
	}
}

func TestSSHRejectsSessionWithoutPty(t *testing.T) {
	requireLong(t)
	ts := newTestServer(t)
	addr, stop := startSSHTestServer(t, ts)
	defer stop()

	client := dialSSH(t, addr)
	defer client.Close()
	session, err := client.NewSession()
	if err != nil {
		t.Fatal(err)
	}
	defer session.Close()
	out, err := session.CombinedOutput("")
	if err == nil {
		t.Fatalf("expected non-zero exit without a pty")
	}
	if !strings.Contains(string(out), "pty required") {
		t.Fatalf("expected pty message, got %q", out)
	}
}

func expectOutput(t *testing.T, buffer *lockedBuffer, substr string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		content := buffer.String()
		if strings.Contains(content, substr) {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	content := buffer.String()
	t.Fatalf("timeout waiting for %q in output: %q", substr, content)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

func (l *lockedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

func startSSHTestServer(t *testing.T, ts *testServer) (string, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	server := &sshserver.Server{
		Addr:        ln.Addr().String(),
		Listener:    ln,
		HostKeyPath: filepath.Join(t.TempDir(), "host_key"),
		Service:     ts.service,
		EventBus:    ts.bus,
	}
	go func() {
		_ = server.ListenAndServe(ctx)
	}()
	return ln.Addr().String(), func() {
		cancel()
		_ = ln.Close()
	}
}

func dialSSH(t *testing.T, addr string) *ssh.Client {
	t.Helper()
	client, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User:            "guest",
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	})
	if err != nil {
		t.Fatalf("dial ssh: %v", err)
	}
	return client
}

func startSSHSession(t *testing.T, client *ssh.Client) (io.WriteCloser, *lockedBuffer, *ssh.Session) {
	t.Helper()
	session, err := client.NewSession()
	if err != nil {
		t.Fatal(err)
	}
	if err := session.RequestPty("xterm", 40, 100, ssh.TerminalModes{}); err != nil {
		t.Fatal(err)
	}
	stdin, err := session.StdinPipe()
	if err != nil {
		t.Fatal(err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		t.Fatal(err)
	}
	if err := session.Shell(); err != nil {
		t.Fatal(err)
	}
	output := &lockedBuffer{}
	go func() {
		_, _ = io.Copy(output, stdout)
	}()
	return stdin, output, session
}

func waitForSessionClose(t *testing.T, session *ssh.Session) {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()
	select {
	case <-time.After(5 * time.Second):
		t.Fatalf("session did not close")
	case <-done:
	}
}
