// Copyright (c) 2025 ToeiRei
// Shipmaster - remote application deployment tool
// This source code is licensed under the MIT license found in the LICENSE file.

// Package deploy implements the remote execution engine: one authenticated
// SSH session per run, command execution with buffered or streamed output,
// artifact upload over SFTP, and the two deployment workflows built on top
// of those primitives.
package deploy

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// DialTimeout bounds transport establishment only. Remote commands
// themselves run without a deadline; a hung command is interruptible via
// the cancellation path alone.
const DialTimeout = 10 * time.Second

// Auth selects how the session authenticates. Exactly one of the two
// implementations is chosen per run.
type Auth interface {
	methods() ([]ssh.AuthMethod, error)
}

// AgentAuth delegates to whatever identities a running SSH agent holds.
type AgentAuth struct{}

func (AgentAuth) methods() ([]ssh.AuthMethod, error) {
	agentClient := getSSHAgent()
	if agentClient == nil {
		return nil, &AuthError{Err: errNoAgent}
	}
	return []ssh.AuthMethod{ssh.PublicKeysCallback(agentClient.Signers)}, nil
}

// KeyFileAuth authenticates with a private key file and its passphrase.
type KeyFileAuth struct {
	Path       string
	Passphrase []byte
}

func (a KeyFileAuth) methods() ([]ssh.AuthMethod, error) {
	keyData, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, &ConfigError{Msg: "could not read private key file", Err: err}
	}

	var signer ssh.Signer
	if len(a.Passphrase) > 0 {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(keyData, a.Passphrase)
	} else {
		signer, err = ssh.ParsePrivateKey(keyData)
	}
	if err != nil {
		return nil, &AuthError{Err: err}
	}
	return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
}

// Session wraps one live, authenticated transport to the remote host. It
// is owned by a single workflow and never shared across concurrent
// operations.
type Session struct {
	client *ssh.Client
	sftp   *sftp.Client
}

var _ Transport = (*Session)(nil)

// Connect opens the TCP transport to the target, performs the SSH
// handshake and authenticates with the given strategy. No retry is
// performed; any failure aborts the run.
func Connect(target Target, auth Auth) (*Session, error) {
	methods, err := auth.methods()
	if err != nil {
		var ae *AuthError
		if errors.As(err, &ae) && ae.User == "" {
			ae.User = target.Username
		}
		return nil, err
	}

	config := &ssh.ClientConfig{
		User:            target.Username,
		Auth:            methods,
		HostKeyCallback: hostKeyCallback(),
		Timeout:         DialTimeout,
	}

	addr := target.Addr()
	conn, err := net.DialTimeout("tcp", addr, DialTimeout)
	if err != nil {
		return nil, &ConnectError{Addr: addr, Err: err}
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, classifyConnErr(addr, target.Username, err)
	}

	client := ssh.NewClient(sshConn, chans, reqs)
	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, &ConnectError{Addr: addr, Err: err}
	}

	return &Session{client: client, sftp: sftpClient}, nil
}

// Close tears down the SFTP channel and the underlying SSH connection.
func (s *Session) Close() error {
	if s.sftp != nil {
		s.sftp.Close()
	}
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// hostKeyCallback verifies hosts against the user's known_hosts file when
// one is available and accepts anything otherwise, which matches how this
// tool has always been pointed at hosts the operator already trusts.
func hostKeyCallback() ssh.HostKeyCallback {
	home, err := os.UserHomeDir()
	if err == nil {
		path := filepath.Join(home, ".ssh", "known_hosts")
		if cb, err := knownhosts.New(path); err == nil {
			return cb
		}
	}
	return ssh.InsecureIgnoreHostKey()
}
