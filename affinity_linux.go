//go:build linux

package parbench

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// allowedCPUs returns the CPUs this process may run on, in ascending order
func allowedCPUs() ([]int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, NewExecutionError("allowedCPUs", "sched_getaffinity failed", err)
	}
	count := set.Count()
	cpus := make([]int, 0, count)
	for cpu := 0; len(cpus) < count; cpu++ {
		if set.IsSet(cpu) {
			cpus = append(cpus, cpu)
		}
	}
	return cpus, nil
}

// pinCurrentThread restricts the calling OS thread to cpu. The caller must
// hold the thread with runtime.LockOSThread.
func pinCurrentThread(cpu int) error {
	var set unix.CPUSet
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return NewExecutionError("pinCurrentThread", fmt.Sprintf("cannot pin to cpu %d", cpu), err)
	}
	return nil
}
