// ════════════════════════════════════════════════════════════════════════════════════════════════
// ⚡ BENCHMARK DRIVER
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: builds a ring, releases it, times it and reads the final token
//
// Description:
//   Thread family: the seed is injected into slot 0 first, then every participant and the driver
//   meet at the start gate. The clock starts when the gate opens; the same gate then serves as the
//   finish line, and the clock stops when its second generation opens. Every participant has
//   closed its outbox by then, so the final take from slot 0 cannot block.
//
//   Process family: children are spawned and must report ready before the seed is written into
//   pipe 0. The clock covers injection to the last reaped child.
//
// Completion is structural: the run is over when every participant has terminated.
// ════════════════════════════════════════════════════════════════════════════════════════════════

package bench

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"tokenring/control"
	"tokenring/debug"
	"tokenring/gate"
	"tokenring/proc"
	"tokenring/ring"
	"tokenring/slot"
	"tokenring/token"
	"tokenring/utils"
)

// ErrJoin reports a participant that failed instead of terminating cleanly.
var ErrJoin = errors.New("bench: participant failed")

var errHandleUsed = errors.New("bench: handle already run")

// Result is the outcome of one run.
type Result struct {
	Config    Config
	Elapsed   time.Duration
	Hops      int64
	Final     token.Token
	FinalOK   bool // false when no token was left in slot 0
	StartedAt time.Time
}

// Seconds returns the elapsed time in seconds.
func (r Result) Seconds() float64 {
	return r.Elapsed.Seconds()
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// OPTIONS
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Option adjusts a Handle.
type Option func(*Handle)

// WithSwitch lets sw stop the run. Participants notice at their next hop;
// child processes are killed.
func WithSwitch(sw *control.Switch) Option {
	return func(h *Handle) { h.sw = sw }
}

// WithObserver receives every hop. Ignored by the process executor.
func WithObserver(fn ring.Observer) Option {
	return func(h *Handle) { h.observer = fn }
}

// WithTraceFunc sends debug trace lines to fn instead of stderr.
func WithTraceFunc(fn func(string)) Option {
	return func(h *Handle) { h.traceFn = fn }
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// HANDLE
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Handle is a built, not yet started run. It runs at most once.
type Handle struct {
	cfg      Config
	ring     *ring.Ring
	plan     proc.Plan
	sw       *control.Switch
	observer ring.Observer
	traceFn  func(string)
	tracer   *debug.Tracer
	used     atomic.Bool
}

// Build validates cfg and constructs everything a run needs up front: the
// ring and its participants, or the spawn plan of the process family.
func Build(cfg Config, opts ...Option) (*Handle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h := &Handle{cfg: cfg}
	for _, opt := range opts {
		opt(h)
	}
	h.tracer = debug.NewTracer(cfg.Debug)
	if cfg.Debug && h.traceFn != nil {
		h.tracer = debug.NewTracerFunc(h.traceFn)
	}

	if cfg.Executor == ExecProcess {
		h.plan = proc.Plan{
			RingSize: cfg.RingSize,
			Rounds:   cfg.Rounds,
			Debug:    cfg.Debug,
			Pinned:   cfg.Pinned,
		}
		return h, nil
	}

	r, err := ring.Build(cfg.RingSize, cfg.Rounds, slot.Factory(cfg.Transport), h.ringOptions()...)
	if err != nil {
		return nil, err
	}
	h.ring = r
	return h, nil
}

func (h *Handle) ringOptions() []ring.Option {
	var opts []ring.Option
	if h.sw != nil {
		opts = append(opts, ring.WithProbe(h.sw))
	}
	if h.observer != nil {
		opts = append(opts, ring.WithObserver(h.observer))
	}
	if h.cfg.Debug {
		opts = append(opts, ring.WithTracer(h.tracer))
	}
	switch {
	case h.cfg.Pinned:
		opts = append(opts, ring.WithPinning())
	case h.cfg.Executor == ExecThread:
		opts = append(opts, ring.WithThreads())
	}
	return opts
}

// Config returns the configuration the handle was built from.
func (h *Handle) Config() Config { return h.cfg }

// Ring exposes the built topology; nil for the process executor.
func (h *Handle) Ring() *ring.Ring { return h.ring }

// Run executes the benchmark and tears everything down.
func (h *Handle) Run() (Result, error) {
	if !h.used.CompareAndSwap(false, true) {
		return Result{}, errHandleUsed
	}
	h.tracer.Message("RING", "Circulate token for "+utils.Itoa(h.cfg.Rounds)+
		" rounds between "+utils.Itoa(h.cfg.RingSize)+" participants")
	if h.cfg.Executor == ExecProcess {
		return h.runProcesses()
	}
	return h.runRing()
}

// Close releases a handle that will not be run.
func (h *Handle) Close() error {
	if h.ring != nil {
		return h.ring.Close()
	}
	return nil
}

func (h *Handle) runRing() (Result, error) {
	r := h.ring
	defer r.Close()

	res := Result{Config: h.cfg, Hops: h.cfg.Hops()}
	h.kickStart()
	if err := r.Slots[0].Put(token.Seed()); err != nil {
		return res, fmt.Errorf("bench: inject: %w", err)
	}

	g := gate.New(r.Size() + 1)
	var eg errgroup.Group
	for _, p := range r.Participants {
		p := p
		eg.Go(func() error {
			err := p.Run(g)
			g.Wait() // finish line
			return err
		})
	}

	g.Wait()
	res.StartedAt = time.Now()
	g.Wait()
	res.Elapsed = time.Since(res.StartedAt)
	joinErr := eg.Wait()

	final, err := r.Slots[0].Take()
	switch {
	case err == nil:
		res.Final, res.FinalOK = final, true
	case !errors.Is(err, slot.ErrClosed):
		debug.DropError("FINAL TOKEN", err)
	}

	if joinErr != nil {
		return res, fmt.Errorf("%w: %w", ErrJoin, joinErr)
	}
	return res, nil
}

func (h *Handle) runProcesses() (Result, error) {
	res := Result{Config: h.cfg, Hops: h.cfg.Hops()}

	g, err := proc.Spawn(h.plan)
	if err != nil {
		return res, err
	}
	defer g.Close()

	if err := g.Ready(); err != nil {
		return res, err
	}
	if h.sw != nil {
		defer h.sw.OnShutdown(g.Kill)()
	}

	h.kickStart()
	if err := g.Inject(token.Seed()); err != nil {
		g.Kill()
		_ = g.Wait()
		return res, fmt.Errorf("bench: inject: %w", err)
	}
	res.StartedAt = time.Now()
	joinErr := g.Wait()
	res.Elapsed = time.Since(res.StartedAt)

	final, ok, err := g.Final()
	if err != nil {
		debug.DropError("FINAL TOKEN", err)
	}
	res.Final, res.FinalOK = final, ok

	if joinErr != nil {
		return res, fmt.Errorf("%w: %w", ErrJoin, joinErr)
	}
	return res, nil
}

func (h *Handle) kickStart() {
	h.tracer.Message("DRIVER", "kick starting by inserting token "+token.Seed().String())
}

// Run builds and runs cfg in one step.
func Run(cfg Config, opts ...Option) (Result, error) {
	h, err := Build(cfg, opts...)
	if err != nil {
		return Result{}, err
	}
	return h.Run()
}
