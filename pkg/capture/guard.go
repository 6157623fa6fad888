// Package capture serialises and captures the diagnostic output that solver
// back-ends write to the process's standard streams.
package capture

import (
	"errors"
	"sync"
)

// ErrReleased is returned by Release on a session that was already released.
var ErrReleased = errors.New("capture: session already released")

// Guard is a process-wide mutual exclusion around solver calls. A guard
// that redirects swaps stdout and stderr for a pipe while a session is held.
type Guard struct {
	mu       sync.Mutex
	redirect bool
}

// NewGuard creates a guard. With redirect false the guard only serialises.
func NewGuard(redirect bool) *Guard {
	return &Guard{redirect: redirect}
}

var process = NewGuard(true)

// Process returns the guard shared by every solver in the process.
func Process() *Guard {
	return process
}

// Session is a held guard. It must be released on every exit path.
type Session struct {
	guard    *Guard
	redirect redirector
	once     sync.Once
}

type redirector interface {
	stop() ([]byte, error)
}

// Acquire blocks until the guard is free and starts capturing. If the
// streams cannot be redirected the guard is released again and the error
// returned.
func (g *Guard) Acquire() (*Session, error) {
	g.mu.Lock()
	s := &Session{guard: g}
	if g.redirect {
		r, err := startRedirect()
		if err != nil {
			g.mu.Unlock()
			return nil, err
		}
		s.redirect = r
	}
	return s, nil
}

// Release restores the standard streams, frees the guard and returns what
// was written while the session was held.
func (s *Session) Release() ([]byte, error) {
	var (
		out []byte
		err = ErrReleased
	)
	s.once.Do(func() {
		err = nil
		if s.redirect != nil {
			out, err = s.redirect.stop()
		}
		s.guard.mu.Unlock()
	})
	return out, err
}
