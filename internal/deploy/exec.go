// Copyright (c) 2025 ToeiRei
// Shipmaster - remote application deployment tool
// This source code is licensed under the MIT license found in the LICENSE file.

package deploy

import (
	"bytes"
	"errors"
	"io"

	"golang.org/x/crypto/ssh"
)

// RunBuffered executes commandString on the remote host, captures stdout
// and stderr fully in memory and returns stdout once the remote process
// has exited. A nonzero exit status is returned as a *CommandError
// carrying the captured stderr.
func (s *Session) RunBuffered(commandString string) (string, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return "", &CommandError{Command: commandString, ExitStatus: -1, Err: err}
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	if err := sess.Run(commandString); err != nil {
		return "", newCommandError(commandString, err, stderr.String())
	}
	return stdout.String(), nil
}

// RunStream executes commandString and writes its merged stdout/stderr to
// out as output becomes available. The watcher is consulted while the
// command runs: on the first interrupt the local channel is closed and the
// call returns without waiting for natural completion. The remote process
// may keep running in that case; this tool makes no attempt to kill it.
func (s *Session) RunStream(commandString string, out io.Writer, cancel *CancelWatcher) error {
	sess, err := s.client.NewSession()
	if err != nil {
		return &CommandError{Command: commandString, ExitStatus: -1, Err: err}
	}
	defer sess.Close()

	// Merged output, written as the remote side produces it.
	sess.Stdout = out
	sess.Stderr = out

	stdin, err := sess.StdinPipe()
	if err != nil {
		return &CommandError{Command: commandString, ExitStatus: -1, Err: err}
	}

	if cancel.Canceled() {
		// Interrupt arrived before the command could start.
		return nil
	}

	if err := sess.Start(commandString); err != nil {
		return &CommandError{Command: commandString, ExitStatus: -1, Err: err}
	}

	done := make(chan error, 1)
	go func() { done <- sess.Wait() }()

	return waitOrCancel(commandString, done, cancel, func() {
		_ = stdin.Close()
		_ = sess.Close()
	})
}

// waitOrCancel is the two-way select at the heart of streaming mode:
// either the remote side finishes and its exit status decides the result,
// or an interrupt arrives first, in which case closeLocal signals
// end-of-input and closes our side of the channel. The remote command's
// exit status is ignored on the cancellation path.
func waitOrCancel(commandString string, done <-chan error, cancel *CancelWatcher, closeLocal func()) error {
	select {
	case <-cancel.Done():
		closeLocal()
		<-done
		return nil
	case err := <-done:
		if err != nil {
			// Stderr already went to the streaming writer; the error only
			// carries the status.
			return newCommandError(commandString, err, "")
		}
		return nil
	}
}

// newCommandError converts a session Wait/Run failure into a *CommandError,
// pulling the exit status out of ssh.ExitError when the remote process
// finished at all.
func newCommandError(commandString string, err error, stderr string) *CommandError {
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return &CommandError{
			Command:    commandString,
			ExitStatus: exitErr.ExitStatus(),
			Stderr:     stderr,
			Err:        err,
		}
	}
	return &CommandError{Command: commandString, ExitStatus: -1, Stderr: stderr, Err: err}
}
