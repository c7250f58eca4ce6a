// ════════════════════════════════════════════════════════════════════════════════════════════════
// Token Slot Contract
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: single-token mailbox between two adjacent ring participants
//
// Description:
//   A slot is EMPTY or FULL(token). Put moves EMPTY→FULL and wakes at most one taker; Take blocks
//   until FULL, removes the token and leaves the slot EMPTY. Exactly one producer (the owner's
//   predecessor) and one consumer (the owner) touch a slot.
//
// Backends:
//   - sem:  shared cell + binary semaphore released by the producer, acquired by the consumer
//   - spin: lock-free SPSC sequence ring polled with a CPU relax hint
//   - pipe: anonymous OS pipe carrying fixed 16-byte records
//
// Shutdown:
//   CloseWrite is the producer's "no more tokens". A taker still receives a pending token and
//   sees ErrClosed afterwards, the same way a pipe reader drains buffered bytes before EOF.
// ════════════════════════════════════════════════════════════════════════════════════════════════

package slot

import (
	"errors"
	"fmt"

	"tokenring/token"
)

var (
	// ErrClosed is returned by Take once the producer side is closed and no
	// token is pending, and by Put after CloseWrite.
	ErrClosed = errors.New("slot: closed")

	// ErrFull is returned by Put when the slot already holds a token. The
	// ring protocol never does this; seeing it means two tokens exist.
	ErrFull = errors.New("slot: already full")
)

// Slot is a one-token mailbox.
type Slot interface {
	// Put stores t and wakes the taker.
	Put(t token.Token) error

	// Take blocks until a token is available and removes it.
	Take() (token.Token, error)

	// CloseWrite signals that no further Put will happen. Idempotent.
	CloseWrite() error

	// Close releases every resource held by the slot. Idempotent and never
	// blocks.
	Close() error
}

// Inspector is implemented by backends that can report their state without
// consuming. Pipes cannot.
type Inspector interface {
	Full() bool
}

// Full reports whether s currently holds a token. ok is false when the
// backend cannot tell.
func Full(s Slot) (full, ok bool) {
	if in, isIn := s.(Inspector); isIn {
		return in.Full(), true
	}
	return false, false
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// BACKEND SELECTION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Kind selects a slot backend.
type Kind uint8

const (
	KindSem Kind = iota
	KindSpin
	KindPipe
)

var kindNames = [...]string{
	KindSem:  "sem",
	KindSpin: "spin",
	KindPipe: "pipe",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Kinds lists every backend in declaration order.
func Kinds() []Kind {
	return []Kind{KindSem, KindSpin, KindPipe}
}

// ParseKind maps a backend name to its Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("slot: unknown transport %q", s)
}

// New returns a fresh, EMPTY slot of the given kind.
func New(k Kind) (Slot, error) {
	switch k {
	case KindSem:
		return NewSem(), nil
	case KindSpin:
		return NewSpin(), nil
	case KindPipe:
		return NewPipe()
	}
	return nil, fmt.Errorf("slot: unknown transport %v", k)
}

// Factory returns a constructor bound to k, the shape the ring builder wants.
func Factory(k Kind) func() (Slot, error) {
	return func() (Slot, error) { return New(k) }
}
