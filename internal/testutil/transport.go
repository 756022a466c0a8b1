// Copyright (c) 2025 ToeiRei
// Shipmaster - remote application deployment tool
// This source code is licensed under the MIT license found in the LICENSE file.

// Package testutil holds in-memory doubles for the deploy package's
// transport so workflow tests never touch the network.
package testutil

import (
	"fmt"
	"io"
	"strings"

	"github.com/toeirei/shipmaster/internal/deploy"
)

// Op records one remote operation issued through the fake transport.
type Op struct {
	// Kind is "run", "stream" or "upload".
	Kind string
	// Command is the shell string for run/stream operations.
	Command string
	// LocalPath/RemotePath are set for upload operations.
	LocalPath  string
	RemotePath string
}

// FakeTransport implements deploy.Transport, recording every operation in
// order. Individual commands can be made to fail via FailOn.
type FakeTransport struct {
	Ops    []Op
	Closed bool

	// Outputs maps a command string to the stdout RunBuffered returns.
	Outputs map[string]string
	// FailOn maps a command substring to the error returned for any
	// matching command.
	FailOn map[string]error
	// UploadErr, if set, fails every upload.
	UploadErr error
}

var _ deploy.Transport = (*FakeTransport)(nil)

// NewFakeTransport returns an empty recording transport.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{Outputs: map[string]string{}, FailOn: map[string]error{}}
}

func (f *FakeTransport) RunBuffered(commandString string) (string, error) {
	f.Ops = append(f.Ops, Op{Kind: "run", Command: commandString})
	if err := f.errFor(commandString); err != nil {
		return "", err
	}
	return f.Outputs[commandString], nil
}

func (f *FakeTransport) RunStream(commandString string, out io.Writer, cancel *deploy.CancelWatcher) error {
	f.Ops = append(f.Ops, Op{Kind: "stream", Command: commandString})
	if err := f.errFor(commandString); err != nil {
		return err
	}
	if output, ok := f.Outputs[commandString]; ok {
		fmt.Fprint(out, output)
	}
	return nil
}

func (f *FakeTransport) Upload(localPath, remotePath string) error {
	f.Ops = append(f.Ops, Op{Kind: "upload", LocalPath: localPath, RemotePath: remotePath})
	return f.UploadErr
}

func (f *FakeTransport) Close() error {
	f.Closed = true
	return nil
}

// Commands returns the shell strings of all run/stream operations in order.
func (f *FakeTransport) Commands() []string {
	var cmds []string
	for _, op := range f.Ops {
		if op.Kind != "upload" {
			cmds = append(cmds, op.Command)
		}
	}
	return cmds
}

func (f *FakeTransport) errFor(commandString string) error {
	for substr, err := range f.FailOn {
		if substr != "" && strings.Contains(commandString, substr) {
			return err
		}
	}
	return nil
}
