package sshserver

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
)

// HostKey is the key the server presents to clients.
type HostKey struct {
	Signer ssh.Signer
	// Path is empty for an ephemeral key.
	Path string
	// Generated is set when the key was created by this call.
	Generated bool
}

// Fingerprint returns the SHA256 fingerprint of the public key.
func (k HostKey) Fingerprint() string {
	if k.Signer == nil {
		return ""
	}
	return ssh.FingerprintSHA256(k.Signer.PublicKey())
}

// Ephemeral reports whether the key lives only in memory.
func (k HostKey) Ephemeral() bool {
	return k.Path == ""
}

// LoadHostKey reads the ed25519 host key at path, generating it on first use.
// An empty path yields an ephemeral key, so clients see a new fingerprint
// after every restart.
func LoadHostKey(path string) (HostKey, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return HostKey{}, fmt.Errorf("generate host key: %w", err)
		}
		signer, err := ssh.NewSignerFromKey(priv)
		if err != nil {
			return HostKey{}, err
		}
		return HostKey{Signer: signer, Generated: true}, nil
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			return HostKey{}, fmt.Errorf("parse host key %s: %w", path, err)
		}
		return HostKey{Signer: signer, Path: path}, nil
	case !errors.Is(err, fs.ErrNotExist):
		return HostKey{}, fmt.Errorf("read host key: %w", err)
	}

	signer, err := writeHostKey(path)
	if err != nil {
		return HostKey{}, err
	}
	return HostKey{Signer: signer, Path: path, Generated: true}, nil
}

func writeHostKey(path string) (ssh.Signer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create host key dir: %w", err)
	}
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate host key: %w", err)
	}
	block, err := ssh.MarshalPrivateKey(priv, "cmdweb host key")
	if err != nil {
		return nil, fmt.Errorf("marshal host key: %w", err)
	}
	// O_EXCL: a concurrent first start must not clobber a key already handed out.
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("write host key: %w", err)
	}
	encodeErr := pem.Encode(file, block)
	closeErr := file.Close()
	if err := errors.Join(encodeErr, closeErr); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write host key: %w", err)
	}
	return ssh.NewSignerFromKey(priv)
}
