package slot

import (
	"sync"
	"sync/atomic"

	"tokenring/token"
)

const (
	cellEmpty uint32 = iota
	cellFull
)

// Sem is a shared-memory slot whose handoff is a binary semaphore.
//
// The semaphore starts acquired, as if the consumer held it. The producer
// claims the cell, writes the token and releases; the consumer waits by
// acquiring, reads and marks the cell empty. Releasing is done by the
// producer and acquiring by the consumer, so the semaphore is a wake-up
// signal and never guards a critical section.
type Sem struct {
	cell   token.Token
	state  atomic.Uint32
	signal chan struct{} // len 1 == released
	closed chan struct{}
	once   sync.Once
}

// NewSem returns an EMPTY semaphore slot.
func NewSem() *Sem {
	return &Sem{
		signal: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// Put implements Slot. It never blocks.
func (s *Sem) Put(t token.Token) error {
	select {
	case <-s.closed:
		return ErrClosed
	default:
	}

	if !s.state.CompareAndSwap(cellEmpty, cellFull) {
		return ErrFull
	}
	s.cell = t

	// An EMPTY cell means the last release was consumed, so this send
	// cannot block.
	s.signal <- struct{}{}
	return nil
}

// Take implements Slot.
func (s *Sem) Take() (token.Token, error) {
	select {
	case <-s.signal:
		return s.consume(), nil
	case <-s.closed:
		// A release that raced the close still carries a token.
		select {
		case <-s.signal:
			return s.consume(), nil
		default:
			return token.Token{}, ErrClosed
		}
	}
}

func (s *Sem) consume() token.Token {
	t := s.cell
	s.state.Store(cellEmpty)
	return t
}

// CloseWrite implements Slot.
func (s *Sem) CloseWrite() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// Close implements Slot. The cell holds no OS resources.
func (s *Sem) Close() error {
	return s.CloseWrite()
}

// Full implements Inspector.
func (s *Sem) Full() bool {
	return s.state.Load() == cellFull
}
