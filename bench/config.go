// config.go — run configuration for the token-ring benchmark

package bench

import (
	"errors"
	"fmt"

	"tokenring/constants"
	"tokenring/slot"
)

// ErrInvalidConfig rejects a configuration before anything is built.
var ErrInvalidConfig = errors.New("bench: invalid configuration")

// Executor selects what runs a participant.
type Executor uint8

const (
	// ExecGoroutine runs participants as plain goroutines.
	ExecGoroutine Executor = iota
	// ExecThread locks every participant to its own OS thread.
	ExecThread
	// ExecProcess runs every participant in its own child process.
	ExecProcess
)

var executorNames = [...]string{
	ExecGoroutine: "goroutine",
	ExecThread:    "thread",
	ExecProcess:   "process",
}

func (e Executor) String() string {
	if int(e) < len(executorNames) {
		return executorNames[e]
	}
	return fmt.Sprintf("Executor(%d)", uint8(e))
}

// Executors lists every executor in declaration order.
func Executors() []Executor {
	return []Executor{ExecGoroutine, ExecThread, ExecProcess}
}

// ParseExecutor maps a CLI name to an Executor.
func ParseExecutor(s string) (Executor, error) {
	for e, name := range executorNames {
		if name == s {
			return Executor(e), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown executor %q", ErrInvalidConfig, s)
}

// Config describes one benchmark run.
type Config struct {
	RingSize  int
	Rounds    int
	Transport slot.Kind
	Executor  Executor
	Pinned    bool
	Debug     bool
}

// DefaultConfig mirrors the CLI defaults.
func DefaultConfig() Config {
	return Config{
		RingSize:  constants.DefaultRingSize,
		Rounds:    constants.DefaultRounds,
		Transport: slot.KindSem,
		Executor:  ExecThread,
	}
}

// Validate reports the first problem with c, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	switch {
	case c.RingSize < 1:
		return fmt.Errorf("%w: ring size %d, need at least 1", ErrInvalidConfig, c.RingSize)
	case c.Rounds < 0:
		return fmt.Errorf("%w: rounds %d, need at least 0", ErrInvalidConfig, c.Rounds)
	case int(c.Transport) >= len(slot.Kinds()):
		return fmt.Errorf("%w: transport %v", ErrInvalidConfig, c.Transport)
	case int(c.Executor) >= len(executorNames):
		return fmt.Errorf("%w: executor %v", ErrInvalidConfig, c.Executor)
	case c.Executor == ExecProcess && c.Transport != slot.KindPipe:
		return fmt.Errorf("%w: %v transport cannot cross process boundaries", ErrInvalidConfig, c.Transport)
	}
	return nil
}

// Hops is the number of token movements a complete run performs.
func (c Config) Hops() int64 {
	return int64(c.RingSize) * int64(c.Rounds)
}
