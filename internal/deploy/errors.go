// Copyright (c) 2025 ToeiRei
// Shipmaster - remote application deployment tool
// This source code is licensed under the MIT license found in the LICENSE file.

package deploy

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigError reports an invalid or missing piece of local configuration.
// It is always raised before any network activity takes place.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ConnectError reports a failure to establish the TCP transport to the
// remote host.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("could not connect to %q: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// HandshakeError reports an SSH protocol negotiation failure with a host
// that was reachable on the TCP level.
type HandshakeError struct {
	Addr string
	Err  error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("ssh handshake with %q failed: %v", e.Addr, e.Err)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// AuthError reports that the remote host rejected our credentials, or that
// no usable credential source was available.
type AuthError struct {
	User string
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication as %q failed: %v", e.User, e.Err)
	}
	return fmt.Sprintf("authentication as %q failed", e.User)
}

func (e *AuthError) Unwrap() error { return e.Err }

// CommandError reports a remote command that finished with a nonzero exit
// status, or that could not be run at all. Stderr carries whatever the
// command wrote to standard error when the invocation captured it.
type CommandError struct {
	Command    string
	ExitStatus int
	Stderr     string
	Err        error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("remote command %q exited with status %d: %s",
			e.Command, e.ExitStatus, strings.TrimSpace(e.Stderr))
	}
	if e.Err != nil && e.ExitStatus < 0 {
		return fmt.Sprintf("remote command %q failed: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("remote command %q exited with status %d", e.Command, e.ExitStatus)
}

func (e *CommandError) Unwrap() error { return e.Err }

// TransferError reports an I/O failure while copying a file to the remote
// host.
type TransferError struct {
	LocalPath  string
	RemotePath string
	Err        error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("upload of %q to %q failed: %v", e.LocalPath, e.RemotePath, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// errNoAgent is surfaced inside an AuthError when agent authentication was
// selected but no agent is reachable.
var errNoAgent = errors.New("no ssh agent available (is SSH_AUTH_SOCK set?)")

// classifyConnErr sorts an ssh.NewClientConn failure into the auth or
// handshake bucket. The ssh package does not expose typed errors for this,
// so we match on the error text the same way OpenSSH-compatible tooling
// tends to.
func classifyConnErr(addr, user string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "no supported methods remain") ||
		strings.Contains(msg, "permission denied") {
		return &AuthError{User: user, Err: err}
	}
	return &HandshakeError{Addr: addr, Err: err}
}

// IsAuthError reports whether err is, or wraps, a credential rejection.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
