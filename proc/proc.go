// ════════════════════════════════════════════════════════════════════════════════════════════════
// ⚡ PROCESS-FAMILY PARTICIPANTS
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: one OS process per ring participant, anonymous pipes as slots
//
// Description:
//   The driver re-executes its own binary once per participant. A child learns who it is from a
//   JSON spec in its environment and finds its pipes at fixed inherited descriptors:
//
//     fd 3  read end of its own inbox pipe
//     fd 4  write end of its successor's inbox pipe
//     fd 5  write end of its report pipe (readiness handshake)
//
//   The driver keeps the read end of pipe 0 to observe the final token and the write end of
//   pipe 0 just long enough to inject the seed.
//
// Liveness:
//   A child stops at its next hop once its parent pid changes, i.e. the driver died.
// ════════════════════════════════════════════════════════════════════════════════════════════════

package proc

import (
	"errors"
	"fmt"
	"os"

	"github.com/sugawarayuuta/sonnet"

	"tokenring/constants"
)

var (
	// ErrStartup reports a child that never signalled readiness.
	ErrStartup = errors.New("proc: participant failed to start")

	// ErrJoin reports a child that could not be reaped cleanly.
	ErrJoin = errors.New("proc: participant failed")
)

// Plan is the shape of a process-family ring.
type Plan struct {
	RingSize int
	Rounds   int
	Debug    bool
	Pinned   bool
}

// Spec is everything a child needs to know about itself.
type Spec struct {
	ID        int  `json:"id"`
	Rounds    int  `json:"rounds"`
	RingSize  int  `json:"ring_size"`
	ParentPID int  `json:"parent_pid"`
	Debug     bool `json:"debug"`
	Pinned    bool `json:"pinned"`
}

func (s Spec) validate() error {
	switch {
	case s.RingSize < 1:
		return fmt.Errorf("ring size %d", s.RingSize)
	case s.ID < 0 || s.ID >= s.RingSize:
		return fmt.Errorf("id %d outside ring of %d", s.ID, s.RingSize)
	case s.Rounds < 0:
		return fmt.Errorf("rounds %d", s.Rounds)
	case s.ParentPID == 0:
		return errors.New("missing parent pid")
	}
	return nil
}

func encodeSpec(s Spec) (string, error) {
	b, err := sonnet.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeSpec(raw string) (Spec, error) {
	var s Spec
	if err := sonnet.Unmarshal([]byte(raw), &s); err != nil {
		return Spec{}, fmt.Errorf("decode %s: %w", constants.ChildEnv, err)
	}
	return s, nil
}

// IsChild reports whether this process was started as a ring participant.
func IsChild() bool {
	_, ok := os.LookupEnv(constants.ChildEnv)
	return ok
}
