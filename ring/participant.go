// ════════════════════════════════════════════════════════════════════════════════════════════════
// ⚡ RING PARTICIPANT
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: unit of concurrency in a token ring
//
// Description:
//   A participant owns its inbox slot and references its successor's inbox as its outbox. After
//   the start gate it repeats take → liveness check → increment → put until its round budget is
//   spent, then closes its outbox so the successor learns that nothing more will arrive.
//
// State machine:
//   CREATED → WAITING_AT_GATE → (BLOCKED_ON_INPUT → PROCESSING → BLOCKED_ON_OUTPUT)* → DONE
//
// Threading model:
//   Threaded participants lock their goroutine to an OS thread; pinned ones additionally bind
//   that thread to CPU core id mod NumCPU.
// ════════════════════════════════════════════════════════════════════════════════════════════════

package ring

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"tokenring/control"
	"tokenring/debug"
	"tokenring/slot"
	"tokenring/utils"
)

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// STATES & HOPS
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// State is a participant's position in its lifecycle.
type State uint32

const (
	StateCreated State = iota
	StateWaitingAtGate
	StateBlockedOnInput
	StateProcessing
	StateBlockedOnOutput
	StateDone
)

var stateNames = [...]string{
	StateCreated:         "CREATED",
	StateWaitingAtGate:   "WAITING_AT_GATE",
	StateBlockedOnInput:  "BLOCKED_ON_INPUT",
	StateProcessing:      "PROCESSING",
	StateBlockedOnOutput: "BLOCKED_ON_OUTPUT",
	StateDone:            "DONE",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint32(s))
}

// Hop describes one token movement as seen by the participant making it.
type Hop struct {
	Participant int
	Round       int // 1-based
	Sender      int32
	Received    int64
	Sent        int64
}

// Observer is called once per hop while the participant holds the token,
// after the increment and before the put. It runs on the participant's
// goroutine and must not block.
type Observer func(Hop)

// Gate is the start barrier a participant arrives at before its first take.
type Gate interface {
	Wait() bool
}

// HopError is a protocol failure that terminated a participant.
type HopError struct {
	Participant int
	Round       int
	Op          string // "take" or "put"
	Err         error
}

func (e *HopError) Error() string {
	return "ring: participant " + utils.Itoa(e.Participant) +
		" round " + utils.Itoa(e.Round) + " " + e.Op + ": " + e.Err.Error()
}

func (e *HopError) Unwrap() error { return e.Err }

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// PARTICIPANT
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Participant is one member of the ring.
type Participant struct {
	ID     int
	Rounds int
	In     slot.Slot
	Out    slot.Slot

	probe    control.Probe
	tracer   *debug.Tracer
	observer Observer
	threaded bool
	pinned   bool

	state atomic.Uint32
	hops  atomic.Int64
}

// NewParticipant wires a standalone participant. Build is the usual entry
// point; child processes use this directly with their inherited pipes.
func NewParticipant(id, rounds int, in, out slot.Slot, opts ...Option) *Participant {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o.participant(id, rounds, in, out)
}

// State returns the participant's current lifecycle state.
func (p *Participant) State() State {
	return State(p.state.Load())
}

// Hops returns the number of completed hops.
func (p *Participant) Hops() int64 {
	return p.hops.Load()
}

func (p *Participant) setState(s State) {
	p.state.Store(uint32(s))
}

// Run executes the participant until its budget is spent, its inbox closes,
// or its probe fails. g may be nil when readiness is signalled elsewhere.
//
// Closed transports and failed probes end the loop with a nil error; only
// protocol violations are returned, as *HopError.
func (p *Participant) Run(g Gate) error {
	if p.threaded || p.pinned {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		if p.pinned {
			if err := setAffinity(p.ID % runtime.NumCPU()); err != nil {
				debug.DropError("PIN "+utils.Itoa(p.ID), err)
			}
		}
	}

	defer func() {
		// Whatever the reason we stop, the successor must learn that no
		// more tokens come from us.
		_ = p.Out.CloseWrite()
		p.setState(StateDone)
	}()

	if g != nil {
		p.setState(StateWaitingAtGate)
		g.Wait()
	}
	p.tracer.Message("PARTICIPANT", "participant "+utils.Itoa(p.ID)+" started")

	for round := 1; round <= p.Rounds; round++ {
		p.setState(StateBlockedOnInput)
		tok, err := p.In.Take()
		if err != nil {
			if errors.Is(err, slot.ErrClosed) {
				p.tracer.Message("CLOSED", "participant "+utils.Itoa(p.ID)+" inbox closed in round "+utils.Itoa(round))
				return nil
			}
			return &HopError{Participant: p.ID, Round: round, Op: "take", Err: err}
		}

		if !p.probe.Alive() {
			p.tracer.Message("STOP", "participant "+utils.Itoa(p.ID)+" stopping in round "+utils.Itoa(round))
			return nil
		}

		p.setState(StateProcessing)
		next := tok.Next(p.ID)
		p.tracer.Hop(p.ID, round, int(tok.Sender), tok.Value, next.Value)
		if p.observer != nil {
			p.observer(Hop{
				Participant: p.ID,
				Round:       round,
				Sender:      tok.Sender,
				Received:    tok.Value,
				Sent:        next.Value,
			})
		}

		p.setState(StateBlockedOnOutput)
		if err := p.Out.Put(next); err != nil {
			if errors.Is(err, slot.ErrClosed) {
				return nil
			}
			return &HopError{Participant: p.ID, Round: round, Op: "put", Err: err}
		}
		p.hops.Add(1)
	}
	return nil
}
