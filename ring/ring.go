// ════════════════════════════════════════════════════════════════════════════════════════════════
// ⚡ RING TOPOLOGY BUILDER
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: N participants over N slots, arranged as a directed cycle
//
// Description:
//   Slot i is participant i's inbox. Participant i writes into slot (i+1) mod N, so the token
//   travels 0 → 1 → … → N-1 → 0. A ring of one is a participant feeding itself.
//
// Ownership:
//   The Ring owns every slot it created. Close releases them exactly once; participants only
//   ever half-close their outbox.
// ════════════════════════════════════════════════════════════════════════════════════════════════

package ring

import (
	"errors"
	"fmt"
	"sync"

	"tokenring/control"
	"tokenring/debug"
	"tokenring/slot"
)

// ErrInvalidConfig rejects impossible ring shapes.
var ErrInvalidConfig = errors.New("ring: invalid configuration")

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// OPTIONS
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Option customises every participant of a ring.
type Option func(*options)

type options struct {
	probe    control.Probe
	tracer   *debug.Tracer
	observer Observer
	threaded bool
	pinned   bool
	budget   func(id int) int
}

func defaultOptions() options {
	return options{probe: control.Always}
}

func (o *options) participant(id, rounds int, in, out slot.Slot) *Participant {
	if o.budget != nil {
		rounds = o.budget(id)
	}
	return &Participant{
		ID:       id,
		Rounds:   rounds,
		In:       in,
		Out:      out,
		probe:    o.probe,
		tracer:   o.tracer,
		observer: o.observer,
		threaded: o.threaded,
		pinned:   o.pinned,
	}
}

// WithProbe sets the liveness check consulted after every take.
func WithProbe(p control.Probe) Option {
	return func(o *options) {
		if p != nil {
			o.probe = p
		}
	}
}

// WithTracer enables per-hop diagnostics.
func WithTracer(t *debug.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithObserver installs a hop callback.
func WithObserver(fn Observer) Option {
	return func(o *options) { o.observer = fn }
}

// WithThreads locks every participant to its own OS thread.
func WithThreads() Option {
	return func(o *options) { o.threaded = true }
}

// WithPinning locks every participant to an OS thread bound to core id mod NumCPU.
func WithPinning() Option {
	return func(o *options) { o.threaded, o.pinned = true, true }
}

// WithBudget overrides the uniform round count per participant. Budgets
// that differ leave tokens stranded; it exists to exercise shutdown.
func WithBudget(fn func(id int) int) Option {
	return func(o *options) { o.budget = fn }
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// RING
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Ring is a built but not yet started topology.
type Ring struct {
	Slots        []slot.Slot
	Participants []*Participant

	closeOnce sync.Once
	closeErr  error
}

// Build creates n slots with newSlot and wires n participants around them.
// On failure every slot created so far is closed again.
func Build(n, rounds int, newSlot func() (slot.Slot, error), opts ...Option) (*Ring, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: ring size %d", ErrInvalidConfig, n)
	}
	if rounds < 0 {
		return nil, fmt.Errorf("%w: rounds %d", ErrInvalidConfig, rounds)
	}
	if newSlot == nil {
		return nil, fmt.Errorf("%w: no slot factory", ErrInvalidConfig)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	r := &Ring{
		Slots:        make([]slot.Slot, 0, n),
		Participants: make([]*Participant, n),
	}
	for i := 0; i < n; i++ {
		s, err := newSlot()
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("ring: slot %d: %w", i, err)
		}
		r.Slots = append(r.Slots, s)
	}
	for i := 0; i < n; i++ {
		r.Participants[i] = o.participant(i, rounds, r.Slots[i], r.Slots[r.Successor(i)])
	}
	return r, nil
}

// Size returns the participant count.
func (r *Ring) Size() int { return len(r.Participants) }

// Successor returns the id participant i forwards to.
func (r *Ring) Successor(i int) int { return (i + 1) % len(r.Slots) }

// Predecessor returns the id that forwards to participant i.
func (r *Ring) Predecessor(i int) int {
	n := len(r.Slots)
	return (i - 1 + n) % n
}

// Cycle follows successor links from participant 0 and returns the visit
// order, ending back at 0.
func (r *Ring) Cycle() []int {
	order := make([]int, 0, r.Size()+1)
	at := 0
	for {
		order = append(order, at)
		at = r.Successor(at)
		if at == 0 || len(order) > r.Size() {
			break
		}
	}
	return append(order, at)
}

// Close releases every slot. Safe to call more than once.
func (r *Ring) Close() error {
	r.closeOnce.Do(func() {
		var errs []error
		for _, s := range r.Slots {
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		r.closeErr = errors.Join(errs...)
	})
	return r.closeErr
}
