//go:build !linux

package executor

// prlimit is Linux-only; elsewhere only the wall-clock deadline applies.
func applyRlimits(pid int, limits Limits) {}
