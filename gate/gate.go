// Package gate implements the start gate of a ring run: a cyclic counting
// barrier that releases every party once all of them have arrived.
//
// A ring of N participants uses N+1 parties, the extra one being the driver.
// The driver passes the gate twice: once to start its clock and once more,
// after every participant has finished, to stop it.
package gate

import "sync"

// Gate is a reusable counting barrier.
type Gate struct {
	mu         sync.Mutex
	cond       *sync.Cond
	parties    int
	waiting    int
	generation uint64
}

// New returns a gate for parties arrivals. It panics if parties < 1.
func New(parties int) *Gate {
	if parties < 1 {
		panic("gate: parties must be >= 1")
	}
	g := &Gate{parties: parties}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Wait blocks until all parties of the current generation have arrived.
// Exactly one caller per generation, the last to arrive, gets true.
func (g *Gate) Wait() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	gen := g.generation
	g.waiting++
	if g.waiting == g.parties {
		g.waiting = 0
		g.generation++
		g.cond.Broadcast()
		return true
	}

	for gen == g.generation {
		g.cond.Wait()
	}
	return false
}

// arrived reports how many parties are blocked in the current generation.
func (g *Gate) arrived() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.waiting
}

// opened returns how many times the gate has opened.
func (g *Gate) opened() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generation
}
