// Copyright (c) 2025 ToeiRei
// Shipmaster - remote application deployment tool
// This source code is licensed under the MIT license found in the LICENSE file.

package deploy

import (
	"os"
	"os/signal"
)

// CancelWatcher observes one interrupt signal for the duration of a single
// streaming command. It only flips a flag the command runner polls; it does
// not itself stop anything.
type CancelWatcher struct {
	ch       chan os.Signal
	canceled bool
}

// NewCancelWatcher registers interest in the interrupt signal. Callers must
// call Stop when the command finishes so the process's default signal
// behavior is restored.
func NewCancelWatcher() *CancelWatcher {
	w := newCancelWatcher(make(chan os.Signal, 1))
	signal.Notify(w.ch, os.Interrupt)
	return w
}

func newCancelWatcher(ch chan os.Signal) *CancelWatcher {
	return &CancelWatcher{ch: ch}
}

// Done exposes the signal channel for select-based waiting. On a nil
// watcher it returns a nil channel, which never becomes ready.
func (w *CancelWatcher) Done() <-chan os.Signal {
	if w == nil {
		return nil
	}
	return w.ch
}

// Canceled reports, without blocking, whether an interrupt arrived since
// the watcher was created. Once true it stays true.
func (w *CancelWatcher) Canceled() bool {
	if w == nil {
		return false
	}
	if w.canceled {
		return true
	}
	select {
	case <-w.ch:
		w.canceled = true
	default:
	}
	return w.canceled
}

// Stop unregisters the signal interest.
func (w *CancelWatcher) Stop() {
	if w != nil {
		signal.Stop(w.ch)
	}
}
