// ============================================================================
// RING TOPOLOGY & PARTICIPANT VALIDATION SUITE
// ============================================================================
//
// Covers:
//   - Successor links form a single cycle for every ring size
//   - Final token value after a full run, per transport
//   - Mailbox exclusivity while the token is held
//   - Shutdown rippling after a failed liveness probe
//   - Protocol errors surfaced as *HopError

package ring

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tokenring/control"
	"tokenring/debug"
	"tokenring/gate"
	"tokenring/slot"
	"tokenring/token"
)

// ============================================================================
// TEST UTILITIES AND HELPERS
// ============================================================================

func mustBuild(t testing.TB, n, rounds int, k slot.Kind, opts ...Option) *Ring {
	t.Helper()
	r, err := Build(n, rounds, slot.Factory(k), opts...)
	if err != nil {
		t.Fatalf("Build(%d, %d, %v): %v", n, rounds, k, err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

// drive injects the seed, releases every participant, joins them and reads
// the token left in slot 0. It fails the test if the ring does not settle.
func drive(t testing.TB, r *Ring) (token.Token, []error) {
	t.Helper()
	if err := r.Slots[0].Put(token.Seed()); err != nil {
		t.Fatalf("inject: %v", err)
	}

	g := gate.New(r.Size() + 1)
	errs := make([]error, r.Size())
	var wg sync.WaitGroup
	for i, p := range r.Participants {
		wg.Add(1)
		go func(i int, p *Participant) {
			defer wg.Done()
			errs[i] = p.Run(g)
		}(i, p)
	}
	g.Wait()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("ring did not settle")
	}

	final, err := r.Slots[0].Take()
	if err != nil && !errors.Is(err, slot.ErrClosed) {
		t.Fatalf("final take: %v", err)
	}
	return final, errs
}

func noErrors(t testing.TB, errs []error) {
	t.Helper()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("participant %d: %v", i, err)
		}
	}
}

// ============================================================================
// TOPOLOGY
// ============================================================================

func TestBuildRejectsInvalidShapes(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		rounds  int
		factory func() (slot.Slot, error)
	}{
		{"empty ring", 0, 1, slot.Factory(slot.KindSem)},
		{"negative size", -2, 1, slot.Factory(slot.KindSem)},
		{"negative rounds", 3, -1, slot.Factory(slot.KindSem)},
		{"no factory", 3, 1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Build(tt.n, tt.rounds, tt.factory); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestBuildClosesSlotsOnFactoryFailure(t *testing.T) {
	var made []slot.Slot
	boom := errors.New("boom")
	factory := func() (slot.Slot, error) {
		if len(made) == 2 {
			return nil, boom
		}
		s := slot.NewSem()
		made = append(made, s)
		return s, nil
	}
	if _, err := Build(4, 1, factory); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	for i, s := range made {
		if err := s.Put(token.Seed()); !errors.Is(err, slot.ErrClosed) {
			t.Fatalf("slot %d left open: %v", i, err)
		}
	}
}

func TestTopologyIsSingleCycle(t *testing.T) {
	for n := 1; n <= 9; n++ {
		t.Run(fmt.Sprintf("n_%d", n), func(t *testing.T) {
			r := mustBuild(t, n, 1, slot.KindSem)
			if r.Size() != n {
				t.Fatalf("Size() = %d", r.Size())
			}

			cycle := r.Cycle()
			if len(cycle) != n+1 || cycle[0] != 0 || cycle[n] != 0 {
				t.Fatalf("Cycle() = %v", cycle)
			}
			seen := make(map[int]bool, n)
			for _, id := range cycle[:n] {
				if seen[id] {
					t.Fatalf("participant %d visited twice: %v", id, cycle)
				}
				seen[id] = true
			}

			for i, p := range r.Participants {
				if p.ID != i {
					t.Fatalf("participant %d has ID %d", i, p.ID)
				}
				if p.In != r.Slots[i] {
					t.Fatalf("participant %d does not own slot %d", i, i)
				}
				if p.Out != r.Slots[(i+1)%n] {
					t.Fatalf("participant %d outbox is not successor's inbox", i)
				}
				if r.Predecessor(r.Successor(i)) != i {
					t.Fatalf("predecessor(successor(%d)) != %d", i, i)
				}
				if p.State() != StateCreated {
					t.Fatalf("fresh participant in state %v", p.State())
				}
			}
		})
	}
}

func TestSingleParticipantFeedsItself(t *testing.T) {
	r := mustBuild(t, 1, 3, slot.KindSem)
	if r.Participants[0].Out != r.Participants[0].In {
		t.Fatal("ring of one must read and write the same slot")
	}
	final, errs := drive(t, r)
	noErrors(t, errs)
	if final.Value != 4 || final.Sender != 0 {
		t.Fatalf("final = %v, want 0;4", final)
	}
}

// ============================================================================
// RUNS
// ============================================================================

func TestFinalValue(t *testing.T) {
	shapes := []struct{ n, rounds int }{
		{1, 1}, {2, 1}, {3, 0}, {5, 5}, {4, 16}, {7, 3},
	}
	for _, k := range slot.Kinds() {
		for _, s := range shapes {
			t.Run(fmt.Sprintf("%v/n%d_r%d", k, s.n, s.rounds), func(t *testing.T) {
				r := mustBuild(t, s.n, s.rounds, k)
				final, errs := drive(t, r)
				noErrors(t, errs)

				want := int64(1 + s.n*s.rounds)
				if final.Value != want {
					t.Fatalf("final value = %d, want %d", final.Value, want)
				}
				wantSender := int32(s.n - 1)
				if s.rounds == 0 {
					wantSender = -1
				}
				if final.Sender != wantSender {
					t.Fatalf("final sender = %d, want %d", final.Sender, wantSender)
				}
				for _, p := range r.Participants {
					if p.State() != StateDone {
						t.Fatalf("participant %d in state %v", p.ID, p.State())
					}
					if p.Hops() != int64(s.rounds) {
						t.Fatalf("participant %d hops = %d", p.ID, p.Hops())
					}
				}
			})
		}
	}
}

func TestThreadedAndPinnedParticipants(t *testing.T) {
	opts := map[string]Option{
		"threads": WithThreads(),
		"pinned":  WithPinning(),
	}
	for name, opt := range opts {
		t.Run(name, func(t *testing.T) {
			r := mustBuild(t, 3, 20, slot.KindSpin, opt)
			final, errs := drive(t, r)
			noErrors(t, errs)
			if final.Value != 61 {
				t.Fatalf("final = %v, want 61", final)
			}
		})
	}
}

func TestAtMostOneFullSlot(t *testing.T) {
	for _, k := range []slot.Kind{slot.KindSem, slot.KindSpin} {
		t.Run(k.String(), func(t *testing.T) {
			var r *Ring
			var violations atomic.Int64
			observer := func(h Hop) {
				// The observer holds the token: nothing may sit in any slot.
				for i, s := range r.Slots {
					if full, ok := slot.Full(s); ok && full {
						violations.Add(1)
						t.Errorf("slot %d full while participant %d holds the token", i, h.Participant)
					}
				}
			}
			r = mustBuild(t, 6, 8, k, WithObserver(observer))
			_, errs := drive(t, r)
			noErrors(t, errs)
			if violations.Load() != 0 {
				t.Fatalf("%d violations", violations.Load())
			}
		})
	}
}

func TestValuesAdvanceByRingSize(t *testing.T) {
	const n, rounds = 4, 10
	var mu sync.Mutex
	seen := make(map[int][]Hop)
	r := mustBuild(t, n, rounds, slot.KindSem, WithObserver(func(h Hop) {
		mu.Lock()
		seen[h.Participant] = append(seen[h.Participant], h)
		mu.Unlock()
	}))
	_, errs := drive(t, r)
	noErrors(t, errs)

	for id := 0; id < n; id++ {
		hops := seen[id]
		if len(hops) != rounds {
			t.Fatalf("participant %d saw %d hops", id, len(hops))
		}
		for i, h := range hops {
			if h.Round != i+1 {
				t.Fatalf("participant %d hop %d reports round %d", id, i, h.Round)
			}
			if h.Sent != h.Received+1 {
				t.Fatalf("participant %d sent %d after receiving %d", id, h.Sent, h.Received)
			}
			if want := int32((id - 1 + n) % n); i > 0 || id > 0 {
				if h.Sender != want {
					t.Fatalf("participant %d received from %d, want %d", id, h.Sender, want)
				}
			}
			if i > 0 && h.Received-hops[i-1].Received != n {
				t.Fatalf("participant %d values %d then %d", id, hops[i-1].Received, h.Received)
			}
		}
	}
	if first := seen[0][0]; first.Sender != -1 || first.Received != 1 {
		t.Fatalf("first hop = %+v, want seed from driver", first)
	}
}

func TestTracerLines(t *testing.T) {
	var mu sync.Mutex
	var lines []string
	tracer := debug.NewTracerFunc(func(s string) {
		mu.Lock()
		lines = append(lines, s)
		mu.Unlock()
	})

	r := mustBuild(t, 2, 1, slot.KindSem, WithTracer(tracer))
	_, errs := drive(t, r)
	noErrors(t, errs)

	var hops []string
	started := make(map[string]bool)
	for _, l := range lines {
		if strings.HasPrefix(l, "PARTICIPANT: ") {
			started[l] = true
			continue
		}
		hops = append(hops, l)
	}
	for _, id := range []string{"0", "1"} {
		if !started["PARTICIPANT: participant "+id+" started\n"] {
			t.Fatalf("no start line for participant %s in %q", id, lines)
		}
	}

	want := []string{
		"I'm 0 in round 1, received token 1 from -1, increment and send \"0;2\"\n",
		"I'm 1 in round 1, received token 2 from 0, increment and send \"1;3\"\n",
	}
	if len(hops) != len(want) {
		t.Fatalf("trace = %q", lines)
	}
	for i := range want {
		if hops[i] != want[i] {
			t.Fatalf("hop line %d = %q, want %q", i, hops[i], want[i])
		}
	}
}

// ============================================================================
// SHUTDOWN
// ============================================================================

func TestFailedProbeRipples(t *testing.T) {
	for _, k := range slot.Kinds() {
		t.Run(k.String(), func(t *testing.T) {
			sw := control.NewSwitch()
			r := mustBuild(t, 5, 5, k,
				WithProbe(sw),
				WithObserver(func(h Hop) {
					if h.Received >= 7 {
						sw.Shutdown()
					}
				}),
			)
			_, errs := drive(t, r)
			noErrors(t, errs)

			var total int64
			for _, p := range r.Participants {
				if p.State() != StateDone {
					t.Fatalf("participant %d in state %v", p.ID, p.State())
				}
				total += p.Hops()
			}
			if total >= 25 {
				t.Fatalf("total hops = %d, shutdown had no effect", total)
			}
		})
	}
}

func TestUnequalBudgetsTerminate(t *testing.T) {
	for _, k := range slot.Kinds() {
		t.Run(k.String(), func(t *testing.T) {
			r := mustBuild(t, 5, 5, k, WithBudget(func(id int) int {
				if id == 2 {
					return 1
				}
				return 5
			}))
			_, errs := drive(t, r)
			noErrors(t, errs)
			if got := r.Participants[2].Hops(); got != 1 {
				t.Fatalf("short participant hops = %d", got)
			}
		})
	}
}

func TestMalformedRecordIsHopError(t *testing.T) {
	r := mustBuild(t, 2, 1, slot.KindPipe)
	p0 := r.Slots[0].(*slot.Pipe)
	if _, err := p0.Writer().Write([]byte("not a token rec!")); err != nil {
		t.Fatalf("write: %v", err)
	}

	errs := make(chan error, 2)
	for _, p := range r.Participants {
		go func(p *Participant) { errs <- p.Run(nil) }(p)
	}

	var hopErr *HopError
	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			if err != nil && !errors.As(err, &hopErr) {
				t.Fatalf("unexpected error type %T: %v", err, err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("participants did not stop")
		}
	}
	if hopErr == nil {
		t.Fatal("malformed record went unnoticed")
	}
	if hopErr.Participant != 0 || hopErr.Round != 1 || hopErr.Op != "take" {
		t.Fatalf("HopError = %+v", hopErr)
	}
	if !errors.Is(hopErr, token.ErrMalformed) {
		t.Fatalf("HopError does not wrap ErrMalformed: %v", hopErr)
	}
	if !strings.Contains(hopErr.Error(), "participant 0 round 1 take") {
		t.Fatalf("Error() = %q", hopErr.Error())
	}
}

func TestCloseIdempotent(t *testing.T) {
	for _, k := range slot.Kinds() {
		r, err := Build(3, 1, slot.Factory(k))
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		if err := r.Close(); err != nil {
			t.Fatalf("%v: first Close: %v", k, err)
		}
		if err := r.Close(); err != nil {
			t.Fatalf("%v: second Close: %v", k, err)
		}
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateCreated:         "CREATED",
		StateWaitingAtGate:   "WAITING_AT_GATE",
		StateBlockedOnInput:  "BLOCKED_ON_INPUT",
		StateProcessing:      "PROCESSING",
		StateBlockedOnOutput: "BLOCKED_ON_OUTPUT",
		StateDone:            "DONE",
		State(99):            "State(99)",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", uint32(s), got, want)
		}
	}
}

// ============================================================================
// BENCHMARKS
// ============================================================================

func BenchmarkRing(b *testing.B) {
	for _, k := range slot.Kinds() {
		b.Run(k.String(), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				r, err := Build(5, 100, slot.Factory(k))
				if err != nil {
					b.Fatal(err)
				}
				drive(b, r)
				_ = r.Close()
			}
		})
	}
}
