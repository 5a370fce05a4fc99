// Copyright (C) 2024 comma authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package runctx holds the shared process state threaded through a
// Stream/Evaluator construction (spec.md §5, §9 "explicit context
// object"): a cooperative shutdown flag set by a signal handler and
// polled by the evaluator between batches.
package runctx

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
)

// Shutdown is a lock-free flag switched on by SIGINT, SIGTERM or
// SIGHUP and polled cooperatively by long-running loops. The zero
// value is a usable "never shutting down" flag; call Install to wire
// it to the process's signals.
type Shutdown struct {
	flag atomic.Bool
}

// Install starts a goroutine that sets s on receipt of SIGINT,
// SIGTERM or SIGHUP, and restores SIGPIPE to its default action
// (matching comma/signal/signal.py: the evaluator writes to pipes
// that may close early, and the default SIGPIPE disposition is the
// one a shell pipeline expects, not a Go runtime panic-free no-op).
func (s *Shutdown) Install() {
	signal.Reset(syscall.SIGPIPE)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		for sig := range ch {
			fmt.Fprintf(os.Stderr, "%s: caught signal: %v\n", filepath.Base(os.Args[0]), sig)
			s.flag.Store(true)
		}
	}()
}

// Set marks s as shut down, for callers (tests, non-signal triggers)
// that want to request cooperative exit directly.
func (s *Shutdown) Set() {
	s.flag.Store(true)
}

// IsSet reports whether s has been triggered.
func (s *Shutdown) IsSet() bool {
	return s.flag.Load()
}
