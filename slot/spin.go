// ============================================================================
// LOCK-FREE SPSC SPIN SLOT
// ============================================================================
//
// Single-producer/single-consumer sequence ring carrying encoded token
// records. With capacity 1 the ring is exactly a mailbox: one cell whose
// sequence number alternates between "writable at t" and "readable at t".
//
// Architecture overview:
//   - Separated head/tail cursors on isolated cache lines
//   - Sequence-based cell availability signalling
//   - Payload copied out before the cell is handed back to the producer
//
// Waiting model:
//   - Take polls with a CPU relax hint between misses
//   - After SpinBudget misses the taker yields its processor so rings larger
//     than GOMAXPROCS still make progress
//
// Safety model:
//   - SPSC discipline required: one producer, one consumer per slot
//   - Push returns false when full; the Slot layer maps that to ErrFull

package slot

import (
	"runtime"
	"sync"
	"sync/atomic"

	"tokenring/constants"
	"tokenring/token"
)

// ============================================================================
// CORE DATA STRUCTURES
// ============================================================================

// cell is one ring entry: 16-byte record + sequence word, padded to 32 bytes.
//
// Sequence semantics (low bit set = readable):
//   - Producer: expects seq == tail<<1, publishes seq = tail<<1 | 1
//   - Consumer: expects seq == head<<1 | 1, recycles seq = (head+size)<<1
//
// Keeping the readable mark out of the writable space is what lets a
// one-cell ring refuse a second put.
type cell struct {
	val token.Record
	seq uint64
	_   [8]byte
}

// Spin is a cache-padded SPSC ring used as a token slot.
type Spin struct {
	_    [64]byte
	head uint64 // consumer cursor

	_    [56]byte
	tail uint64 // producer cursor

	_      [56]byte
	closed atomic.Uint32
	once   sync.Once

	mask uint64
	step uint64
	buf  []cell
}

// ============================================================================
// CONSTRUCTORS
// ============================================================================

// NewSpin returns a one-cell spin slot.
func NewSpin() *Spin {
	return NewSpinRing(constants.SpinCapacity)
}

// NewSpinRing returns a spin ring with size cells.
//
// Panics:
//   - size <= 0 or not a power of two
func NewSpinRing(size int) *Spin {
	if size <= 0 || size&(size-1) != 0 {
		panic("slot: spin size must be >0 and power of two")
	}

	r := &Spin{
		mask: uint64(size - 1),
		step: uint64(size),
		buf:  make([]cell, size),
	}
	for i := range r.buf {
		r.buf[i].seq = uint64(i) << 1
	}
	return r
}

// ============================================================================
// RING OPERATIONS
// ============================================================================

// push copies val into the next free cell. Single producer only.
//
//go:nosplit
//go:inline
func (r *Spin) push(val *token.Record) bool {
	t := atomic.LoadUint64(&r.tail)
	c := &r.buf[t&r.mask]

	if atomic.LoadUint64(&c.seq) != t<<1 {
		return false
	}

	c.val = *val
	atomic.StoreUint64(&c.seq, t<<1|1)
	atomic.StoreUint64(&r.tail, t+1)
	return true
}

// pop copies the oldest record into dst. Single consumer only.
//
// The copy happens before the cell is recycled; once seq moves on, the
// producer may overwrite it.
//
//go:nosplit
//go:inline
func (r *Spin) pop(dst *token.Record) bool {
	h := atomic.LoadUint64(&r.head)
	c := &r.buf[h&r.mask]

	if atomic.LoadUint64(&c.seq) != h<<1|1 {
		return false
	}

	*dst = c.val
	atomic.StoreUint64(&c.seq, (h+r.step)<<1)
	atomic.StoreUint64(&r.head, h+1)
	return true
}

// ============================================================================
// SLOT CONTRACT
// ============================================================================

// Put implements Slot. It never blocks.
func (r *Spin) Put(t token.Token) error {
	if r.closed.Load() != 0 {
		return ErrClosed
	}
	var rec token.Record
	token.Encode(&rec, t)
	if !r.push(&rec) {
		return ErrFull
	}
	return nil
}

// Take implements Slot by polling until a record arrives or the producer
// closes.
func (r *Spin) Take() (token.Token, error) {
	var rec token.Record
	miss := 0

	for {
		if r.pop(&rec) {
			return token.Decode(rec[:])
		}

		if r.closed.Load() != 0 {
			// The producer may have published just before closing.
			if r.pop(&rec) {
				return token.Decode(rec[:])
			}
			return token.Token{}, ErrClosed
		}

		if miss++; miss >= constants.SpinBudget {
			miss = 0
			runtime.Gosched()
			continue
		}
		cpuRelax()
	}
}

// CloseWrite implements Slot.
func (r *Spin) CloseWrite() error {
	r.once.Do(func() { r.closed.Store(1) })
	return nil
}

// Close implements Slot.
func (r *Spin) Close() error {
	return r.CloseWrite()
}

// Full implements Inspector: the cell at the consumer cursor is published.
func (r *Spin) Full() bool {
	h := atomic.LoadUint64(&r.head)
	return atomic.LoadUint64(&r.buf[h&r.mask].seq) == h<<1|1
}
