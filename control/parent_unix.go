//go:build unix

package control

import "golang.org/x/sys/unix"

// Parent is alive while the calling process is still parented by pid. When
// the spawning driver dies the child is reparented (to init or a subreaper)
// and the probe fails.
type Parent struct {
	pid int
}

// NewParent captures the expected parent pid. Pass the driver's pid as
// announced in the participant spec, not the current getppid, so a parent
// that died before the child started is also detected.
func NewParent(pid int) *Parent {
	return &Parent{pid: pid}
}

// Alive implements Probe.
func (p *Parent) Alive() bool {
	return unix.Getppid() == p.pid
}
