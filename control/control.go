// control.go — Run-scoped shutdown switch and liveness probes for participants
// ============================================================================
// RING CONTROL
// ============================================================================
//
// Participants poll a Probe once per hop, right after a successful take. A
// failing probe makes the participant stop without forwarding the token; the
// output closure that follows ripples the shutdown around the ring.
//
// Probe implementations:
//   • Switch  – flipped by the driver or a signal handler (thread family)
//   • Parent  – parent process still the one that spawned us (process family)
//   • Always  – never fails; used when no cancellation source exists
//
// Unlike a process-wide flag, a Switch belongs to one run: two rings in the
// same process never observe each other's shutdown.

package control

import (
	"sync"
	"sync/atomic"
)

// Probe reports whether the enclosing system still wants the ring to run.
type Probe interface {
	Alive() bool
}

// ============================================================================
// SHUTDOWN SWITCH
// ============================================================================

// Switch is a one-way shutdown flag. The zero value is running.
type Switch struct {
	stop  atomic.Uint32
	mu    sync.Mutex
	hooks []*hook
}

type hook struct{ fn func() }

// NewSwitch returns a running switch.
func NewSwitch() *Switch {
	return &Switch{}
}

// Shutdown trips the switch. Hooks run once, on the first call, in
// registration order.
func (s *Switch) Shutdown() {
	s.mu.Lock()
	if s.stop.Load() != 0 {
		s.mu.Unlock()
		return
	}
	s.stop.Store(1)
	hooks := s.hooks
	s.hooks = nil
	s.mu.Unlock()

	for _, h := range hooks {
		h.fn()
	}
}

// OnShutdown registers fn to run when the switch trips. If the switch has
// already tripped fn runs immediately. The returned func removes fn again;
// a run that outlives its own resources must call it.
func (s *Switch) OnShutdown(fn func()) (remove func()) {
	s.mu.Lock()
	if s.stop.Load() != 0 {
		s.mu.Unlock()
		fn()
		return func() {}
	}
	h := &hook{fn: fn}
	s.hooks = append(s.hooks, h)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, x := range s.hooks {
			if x == h {
				s.hooks = append(s.hooks[:i], s.hooks[i+1:]...)
				return
			}
		}
	}
}

// Hooks reports how many shutdown hooks are registered.
func (s *Switch) Hooks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hooks)
}

// Stopped reports whether Shutdown has been called.
func (s *Switch) Stopped() bool {
	return s.stop.Load() != 0
}

// Alive implements Probe.
func (s *Switch) Alive() bool {
	return !s.Stopped()
}

// ============================================================================
// TRIVIAL PROBES
// ============================================================================

type always struct{}

func (always) Alive() bool { return true }

// Always is a probe that never fails.
var Always Probe = always{}

// Func adapts a plain function to Probe.
type Func func() bool

// Alive implements Probe.
func (f Func) Alive() bool { return f() }
