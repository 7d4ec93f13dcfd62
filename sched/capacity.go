package sched

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// DetectCapacity returns how many tasks may run at once on this machine.
// One hardware thread is left to the foreground goroutine. When the
// logical count leaves a single worker or none, the physical core count
// is used instead.
func DetectCapacity() int {
	return capacityFrom(runtime.NumCPU(), physicalCores)
}

// physicalCores is zero-safe: CPUs cpuid cannot identify report the
// logical count.
func physicalCores() int {
	if n := cpuid.CPU.PhysicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

func capacityFrom(logical int, fallback func() int) int {
	n := logical - 1
	if n <= 1 && fallback != nil {
		n = fallback() - 1
	}
	if n < 1 {
		n = 1
	}
	return n
}
