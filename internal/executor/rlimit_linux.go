//go:build linux

package executor

import "golang.org/x/sys/unix"

// applyRlimits pins CPU-time and address-space ceilings onto the already
// started child. prlimit targets the child's pid, so the service process is
// never constrained. The soft CPU limit raises SIGXCPU; the hard limit one
// second later is a SIGKILL backstop.
func applyRlimits(pid int, limits Limits) {
	if limits.CPUSeconds > 0 {
		cpu := unix.Rlimit{
			Cur: uint64(limits.CPUSeconds),
			Max: uint64(limits.CPUSeconds + 1),
		}
		unix.Prlimit(pid, unix.RLIMIT_CPU, &cpu, nil)
	}
	if limits.MemoryBytes > 0 {
		mem := unix.Rlimit{
			Cur: uint64(limits.MemoryBytes),
			Max: uint64(limits.MemoryBytes),
		}
		unix.Prlimit(pid, unix.RLIMIT_AS, &mem, nil)
	}
}
