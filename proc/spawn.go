// spawn.go — driver side of the process family

package proc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"golang.org/x/sync/errgroup"

	"tokenring/constants"
	"tokenring/debug"
	"tokenring/slot"
	"tokenring/token"
	"tokenring/utils"
)

var (
	// executable resolves the binary children are started from.
	executable = os.Executable

	// specHook lets tests tamper with a child's spec before it is encoded.
	specHook func(*Spec)
)

// Group is a set of spawned participant processes and the driver's ends of
// their pipes.
type Group struct {
	plan  Plan
	cmds  []*exec.Cmd
	ready []*os.File // read ends of report pipes

	// Pipe 0 as seen by the driver: write end for injection, read end for
	// the final token.
	head *slot.Pipe

	closeOnce sync.Once
	killOnce  sync.Once
}

// Spawn starts plan.RingSize children wired into a ring of pipes. Children
// are running but not yet known to be ready; call Ready before Inject.
func Spawn(plan Plan) (*Group, error) {
	if plan.RingSize < 1 || plan.Rounds < 0 {
		return nil, fmt.Errorf("%w: ring size %d, rounds %d", ErrStartup, plan.RingSize, plan.Rounds)
	}
	exe, err := executable()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStartup, err)
	}

	n := plan.RingSize
	rs := make([]*os.File, n) // inbox read ends
	ws := make([]*os.File, n) // inbox write ends
	reports := make([]*os.File, n)
	reportW := make([]*os.File, n)
	closeAll := func() {
		for _, set := range [][]*os.File{rs, ws, reports, reportW} {
			for _, f := range set {
				if f != nil {
					_ = f.Close()
				}
			}
		}
	}

	for i := 0; i < n; i++ {
		if rs[i], ws[i], err = os.Pipe(); err != nil {
			closeAll()
			return nil, fmt.Errorf("%w: inbox pipe %d: %v", ErrStartup, i, err)
		}
		if reports[i], reportW[i], err = os.Pipe(); err != nil {
			closeAll()
			return nil, fmt.Errorf("%w: report pipe %d: %v", ErrStartup, i, err)
		}
	}

	g := &Group{plan: plan, cmds: make([]*exec.Cmd, 0, n), ready: reports}
	parent := os.Getpid()
	for i := 0; i < n; i++ {
		spec := Spec{
			ID:        i,
			Rounds:    plan.Rounds,
			RingSize:  n,
			ParentPID: parent,
			Debug:     plan.Debug,
			Pinned:    plan.Pinned,
		}
		if specHook != nil {
			specHook(&spec)
		}
		env, err := encodeSpec(spec)
		if err != nil {
			g.abort()
			closeAll()
			return nil, fmt.Errorf("%w: participant %d spec: %v", ErrStartup, i, err)
		}

		cmd := exec.Command(exe)
		cmd.Env = append(os.Environ(), constants.ChildEnv+"="+env)
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr
		cmd.ExtraFiles = []*os.File{rs[i], ws[(i+1)%n], reportW[i]}
		if err := cmd.Start(); err != nil {
			g.abort()
			closeAll()
			return nil, fmt.Errorf("%w: participant %d: %v", ErrStartup, i, err)
		}
		g.cmds = append(g.cmds, cmd)
	}

	// Children hold their own copies now. The driver keeps pipe 0 only.
	for i := 0; i < n; i++ {
		_ = reportW[i].Close()
		if i == 0 {
			continue
		}
		_ = rs[i].Close()
		_ = ws[i].Close()
	}
	g.head = slot.NewPipeFiles(rs[0], ws[0])
	return g, nil
}

// Size returns the number of spawned participants.
func (g *Group) Size() int { return len(g.cmds) }

// Ready waits for every child's readiness flag. On failure every child is
// killed and reaped and the error wraps ErrStartup.
func (g *Group) Ready() error {
	var buf [constants.ReadyFlagSize]byte
	for i, r := range g.ready {
		_, err := io.ReadFull(r, buf[:])
		if err == nil {
			if flag := binary.LittleEndian.Uint32(buf[:]); flag != constants.ReadyFlag {
				err = fmt.Errorf("ready flag %d", flag)
			}
		}
		if err != nil {
			g.abort()
			return fmt.Errorf("%w: participant %d: %v", ErrStartup, i, err)
		}
	}
	return nil
}

// Inject puts the seed into pipe 0 and gives up the driver's write end, so
// that pipe 0 reaches EOF once the last participant closes its outbox.
func (g *Group) Inject(t token.Token) error {
	err := g.head.Put(t)
	if cerr := g.head.CloseWrite(); err == nil {
		err = cerr
	}
	return err
}

// Wait reaps every child. Any non-zero exit is reported as ErrJoin.
func (g *Group) Wait() error {
	var eg errgroup.Group
	for i, cmd := range g.cmds {
		i, cmd := i, cmd
		eg.Go(func() error {
			if err := cmd.Wait(); err != nil {
				return fmt.Errorf("%w: participant %d: %v", ErrJoin, i, err)
			}
			return nil
		})
	}
	return eg.Wait()
}

// Final reads the token left in pipe 0. ok is false when the pipe closed
// empty, which happens when shutdown stranded the token elsewhere.
func (g *Group) Final() (t token.Token, ok bool, err error) {
	t, err = g.head.Take()
	if errors.Is(err, slot.ErrClosed) {
		return token.Token{}, false, nil
	}
	if err != nil {
		return token.Token{}, false, err
	}
	return t, true, nil
}

// Kill terminates every child without reaping it.
func (g *Group) Kill() {
	for i, cmd := range g.cmds {
		if cmd.Process == nil {
			continue
		}
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			debug.DropError("KILL PARTICIPANT "+utils.Itoa(i), err)
		}
	}
}

// abort kills and reaps whatever was started.
func (g *Group) abort() {
	g.killOnce.Do(func() {
		g.Kill()
		for _, cmd := range g.cmds {
			_ = cmd.Wait()
		}
	})
}

// Close releases the driver's descriptors. Safe to call more than once.
func (g *Group) Close() error {
	var errs []error
	g.closeOnce.Do(func() {
		if g.head != nil {
			errs = append(errs, g.head.Close())
		}
		for _, r := range g.ready {
			errs = append(errs, r.Close())
		}
	})
	return errors.Join(errs...)
}
