// Package shutdown provides the process-wide cancellation signal polled by
// every capture and relay loop.
package shutdown

import (
	"sync"
	"sync/atomic"
)

// Signal is level-triggered: once set it stays set.
type Signal struct {
	set  atomic.Bool
	once sync.Once
	done chan struct{}
}

// New returns an unset signal.
func New() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Trigger sets the signal. Calling it more than once is harmless.
func (s *Signal) Trigger() {
	s.once.Do(func() {
		s.set.Store(true)
		close(s.done)
	})
}

// Triggered reports whether the signal has been set.
func (s *Signal) Triggered() bool {
	return s.set.Load()
}

// Done returns a channel closed when the signal is set, for use in selects
// that would otherwise block on a full channel.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}
