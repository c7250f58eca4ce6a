// ============================================================================
// SLOT CONTRACT VALIDATION SUITE
// ============================================================================
//
// Every backend is driven through the same contract checks:
//   - Put/Take handoff and payload integrity
//   - Take blocks until a producer puts
//   - Pending token delivered before ErrClosed
//   - Put after CloseWrite rejected
//   - Idempotent Close
// Backend-specific behaviour (ErrFull detection, malformed records) follows.

package slot

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"tokenring/token"
)

// ============================================================================
// TEST UTILITIES AND HELPERS
// ============================================================================

func newSlot(t *testing.T, k Kind) Slot {
	t.Helper()
	s, err := New(k)
	if err != nil {
		t.Fatalf("New(%v): %v", k, err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// takeAsync runs Take on a goroutine and reports through a channel.
func takeAsync(s Slot) <-chan takeResult {
	ch := make(chan takeResult, 1)
	go func() {
		tok, err := s.Take()
		ch <- takeResult{tok, err}
	}()
	return ch
}

type takeResult struct {
	tok token.Token
	err error
}

func forEachKind(t *testing.T, fn func(t *testing.T, k Kind)) {
	for _, k := range Kinds() {
		t.Run(k.String(), func(t *testing.T) { fn(t, k) })
	}
}

// ============================================================================
// KIND SELECTION
// ============================================================================

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Fatalf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseKind("mutex"); err == nil {
		t.Fatal("ParseKind must reject unknown names")
	}
	if s := Kind(42).String(); s != "Kind(42)" {
		t.Fatalf("unknown kind string = %q", s)
	}
	if _, err := New(Kind(42)); err == nil {
		t.Fatal("New must reject unknown kinds")
	}
}

// ============================================================================
// CONTRACT
// ============================================================================

func TestPutTake(t *testing.T) {
	forEachKind(t, func(t *testing.T, k Kind) {
		s := newSlot(t, k)
		for i := 0; i < 100; i++ {
			want := token.Token{Sender: int32(i % 7), Value: int64(i)}
			if err := s.Put(want); err != nil {
				t.Fatalf("Put #%d: %v", i, err)
			}
			got, err := s.Take()
			if err != nil {
				t.Fatalf("Take #%d: %v", i, err)
			}
			if got != want {
				t.Fatalf("Take #%d = %+v, want %+v", i, got, want)
			}
		}
	})
}

func TestTakeBlocksUntilPut(t *testing.T) {
	forEachKind(t, func(t *testing.T, k Kind) {
		s := newSlot(t, k)
		ch := takeAsync(s)

		select {
		case r := <-ch:
			t.Fatalf("Take returned early: %+v", r)
		case <-time.After(20 * time.Millisecond):
		}

		if err := s.Put(token.Seed()); err != nil {
			t.Fatalf("Put: %v", err)
		}
		select {
		case r := <-ch:
			if r.err != nil || r.tok != token.Seed() {
				t.Fatalf("Take = %+v", r)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Take did not wake after Put")
		}
	})
}

func TestCloseWriteDrainsThenCloses(t *testing.T) {
	forEachKind(t, func(t *testing.T, k Kind) {
		s := newSlot(t, k)
		if err := s.Put(token.Seed()); err != nil {
			t.Fatalf("Put: %v", err)
		}
		if err := s.CloseWrite(); err != nil {
			t.Fatalf("CloseWrite: %v", err)
		}

		got, err := s.Take()
		if err != nil || got != token.Seed() {
			t.Fatalf("pending token lost: %+v, %v", got, err)
		}
		if _, err := s.Take(); !errors.Is(err, ErrClosed) {
			t.Fatalf("Take after drain = %v, want ErrClosed", err)
		}
		if err := s.Put(token.Seed()); !errors.Is(err, ErrClosed) {
			t.Fatalf("Put after CloseWrite = %v, want ErrClosed", err)
		}
	})
}

func TestCloseWriteWakesBlockedTaker(t *testing.T) {
	forEachKind(t, func(t *testing.T, k Kind) {
		s := newSlot(t, k)
		ch := takeAsync(s)
		time.Sleep(10 * time.Millisecond)

		_ = s.CloseWrite()
		select {
		case r := <-ch:
			if !errors.Is(r.err, ErrClosed) {
				t.Fatalf("Take = %v, want ErrClosed", r.err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("blocked Take not released by CloseWrite")
		}
	})
}

func TestCloseIdempotent(t *testing.T) {
	forEachKind(t, func(t *testing.T, k Kind) {
		s, err := New(k)
		if err != nil {
			t.Fatal(err)
		}
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = s.CloseWrite()
			_ = s.Close()
			_ = s.Close()
			_ = s.CloseWrite()
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("repeated Close blocked")
		}
	})
}

// ============================================================================
// BACKEND SPECIFICS
// ============================================================================

func TestDoublePutIsFull(t *testing.T) {
	for _, k := range []Kind{KindSem, KindSpin} {
		t.Run(k.String(), func(t *testing.T) {
			s := newSlot(t, k)
			if full, ok := Full(s); !ok || full {
				t.Fatalf("fresh slot Full() = %v, %v", full, ok)
			}
			if err := s.Put(token.Seed()); err != nil {
				t.Fatal(err)
			}
			if full, _ := Full(s); !full {
				t.Fatal("slot must report FULL after Put")
			}
			if err := s.Put(token.Seed()); !errors.Is(err, ErrFull) {
				t.Fatalf("second Put = %v, want ErrFull", err)
			}
			if _, err := s.Take(); err != nil {
				t.Fatal(err)
			}
			if full, _ := Full(s); full {
				t.Fatal("slot must report EMPTY after Take")
			}
		})
	}
}

func TestPipeCannotInspect(t *testing.T) {
	s := newSlot(t, KindPipe)
	if _, ok := Full(s); ok {
		t.Fatal("pipe slots do not implement Inspector")
	}
}

func TestPipeMalformedRecord(t *testing.T) {
	p, err := NewPipe()
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	if _, err := p.Writer().Write([]byte("4711;2\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00")); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Take(); !errors.Is(err, token.ErrMalformed) {
		t.Fatalf("Take = %v, want ErrMalformed", err)
	}
}

func TestPipeTruncatedRecord(t *testing.T) {
	p, err := NewPipe()
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	var rec token.Record
	token.Encode(&rec, token.Seed())
	if _, err := p.Writer().Write(rec[:7]); err != nil {
		t.Fatal(err)
	}
	_ = p.CloseWrite()

	if _, err := p.Take(); !errors.Is(err, token.ErrMalformed) {
		t.Fatalf("Take = %v, want ErrMalformed", err)
	}
}

func TestPipeBrokenReader(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	_ = r.Close()

	p := NewPipeFiles(nil, w)
	defer p.Close()
	if err := p.Put(token.Seed()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Put to pipe without reader = %v, want ErrClosed", err)
	}
}

func TestPipeHalfEnds(t *testing.T) {
	p := NewPipeFiles(nil, nil)
	if err := p.Put(token.Seed()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Put without writer = %v", err)
	}
	if _, err := p.Take(); !errors.Is(err, ErrClosed) {
		t.Fatalf("Take without reader = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close of empty pipe = %v", err)
	}
}

func TestSpinRingSizes(t *testing.T) {
	for _, size := range []int{0, -1, 3, 6, 1000} {
		t.Run(fmt.Sprintf("invalid_%d", size), func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatalf("NewSpinRing(%d) should panic", size)
				}
			}()
			_ = NewSpinRing(size)
		})
	}

	r := NewSpinRing(4)
	for round := 0; round < 3; round++ {
		for i := 0; i < 4; i++ {
			if err := r.Put(token.Token{Value: int64(round*4 + i)}); err != nil {
				t.Fatalf("Put %d/%d: %v", round, i, err)
			}
		}
		if err := r.Put(token.Token{}); !errors.Is(err, ErrFull) {
			t.Fatalf("Put into full ring = %v", err)
		}
		for i := 0; i < 4; i++ {
			got, err := r.Take()
			if err != nil || got.Value != int64(round*4+i) {
				t.Fatalf("Take %d/%d = %+v, %v", round, i, got, err)
			}
		}
	}
}

// TestHandoffStress passes a counter back and forth between two goroutines
// through two slots, the N=2 ring in miniature.
func TestHandoffStress(t *testing.T) {
	const hops = 2000
	forEachKind(t, func(t *testing.T, k Kind) {
		a, b := newSlot(t, k), newSlot(t, k)

		var wg sync.WaitGroup
		errs := make(chan error, 2)
		relay := func(id int, in, out Slot) {
			defer wg.Done()
			for i := 0; i < hops; i++ {
				tok, err := in.Take()
				if err != nil {
					errs <- err
					return
				}
				if err := out.Put(tok.Next(id)); err != nil {
					errs <- err
					return
				}
			}
		}

		wg.Add(2)
		go relay(0, a, b)
		go relay(1, b, a)
		if err := a.Put(token.Seed()); err != nil {
			t.Fatal(err)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatal(err)
		}

		final, err := a.Take()
		if err != nil {
			t.Fatal(err)
		}
		if want := int64(1 + 2*hops); final.Value != want {
			t.Fatalf("final value = %d, want %d", final.Value, want)
		}
	})
}

func BenchmarkHandoff(b *testing.B) {
	for _, k := range Kinds() {
		b.Run(k.String(), func(b *testing.B) {
			s, err := New(k)
			if err != nil {
				b.Fatal(err)
			}
			defer s.Close()
			tok := token.Seed()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = s.Put(tok)
				tok, _ = s.Take()
			}
		})
	}
}
