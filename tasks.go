package parbench

import "math"

// TaskWeights are the relative costs of light, moderate and heavy tasks.
// The tasks kernel lays them out in that order, one third each, so a static
// split into one contiguous range per thread leaves the last threads with
// most of the work while dynamic and guided claims even it out.
var TaskWeights = [3]int{1, 5, 20}

// taskStepFlops counts one inner step, with sqrt and cos as one operation each
const taskStepFlops = 8

// taskClassSize is the number of tasks in each weight class
func taskClassSize(n int) int {
	return (n + 2) / 3
}

// TaskCost returns the inner step count of task i out of n
func TaskCost(i, n int) int {
	return TaskWeights[i/taskClassSize(n)] * TaskUnit
}

// TaskSteps returns the inner step count of all n tasks
func TaskSteps(n int) float64 {
	d := taskClassSize(n)
	light := min(d, n)
	moderate := min(d, n-light)
	heavy := n - light - moderate
	return float64(light*TaskWeights[0]+moderate*TaskWeights[1]+heavy*TaskWeights[2]) * TaskUnit
}

// RunTask performs task i out of n. Every step adds a positive term, so
// partial sums over task ranges never cancel.
func RunTask(i, n int) float64 {
	steps := TaskCost(i, n)
	x := float64(i)
	var sum float64
	for k := 0; k < steps; k++ {
		t := x + float64(k)*1e-3
		sum += math.Sqrt(t+0.5) * (1.5 + math.Cos(t*1e-3))
	}
	return sum
}

// RunTasks performs tasks [start, end) out of n and sums their results
func RunTasks(start, end, n int) float64 {
	var sum float64
	for i := start; i < end; i++ {
		sum += RunTask(i, n)
	}
	return sum
}
