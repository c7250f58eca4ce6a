//go:build !unix

package control

import "os"

// Parent is alive while the calling process is still parented by pid.
type Parent struct {
	pid int
}

// NewParent captures the expected parent pid.
func NewParent(pid int) *Parent {
	return &Parent{pid: pid}
}

// Alive implements Probe.
func (p *Parent) Alive() bool {
	return os.Getppid() == p.pid
}
