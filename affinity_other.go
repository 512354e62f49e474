//go:build !linux

package parbench

import "runtime"

// allowedCPUs reports every logical CPU; affinity is not queried here
func allowedCPUs() ([]int, error) {
	cpus := make([]int, runtime.NumCPU())
	for i := range cpus {
		cpus[i] = i
	}
	return cpus, nil
}

// pinCurrentThread is a no-op outside Linux
func pinCurrentThread(int) error {
	return nil
}
