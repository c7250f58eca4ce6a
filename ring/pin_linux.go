// pin_linux.go - Linux CPU affinity via sched_setaffinity(2)

//go:build linux

package ring

import "golang.org/x/sys/unix"

// setAffinity binds the calling OS thread to a single CPU core.
// The caller must already hold runtime.LockOSThread.
func setAffinity(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}
