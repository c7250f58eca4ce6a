// pin_other.go - CPU affinity is advisory; platforms without sched_setaffinity
// run participants on a locked but unpinned thread.

//go:build !linux

package ring

func setAffinity(cpu int) error { return nil }
