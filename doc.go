// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package parbench is a harness for measuring how loop unrolling, cache
// blocking and parallel scheduling change the performance of small numeric
// kernels.
//
// Every benchmark pairs a sequential reference kernel with a parallel variant
// executed by a fork-join Team. The Team consults a Partitioner for chunk
// assignment (static, dynamic or guided) and combines partial results with one
// of three reduction strategies:
//   - SharedReduction: every partial is folded into one target with atomics
//   - LocalMerge: private accumulators merged inside a critical section
//   - Unsynchronized: the opt-in race demonstration, which loses updates
//
// A Timer runs warmup iterations and keeps the fastest of the measured trials.
// Derived figures (GB/s, MFLOP/s, speedup, efficiency) are pure functions of
// the retained times, and every parallel result is checked against the
// sequential one within a Tolerance. A failed check is reported, not fatal.
//
// Typical use:
//
//	h, err := parbench.NewHarness(parbench.KernelSpec{Kind: parbench.KernelDMVM, N: 40000, M: 600})
//	if err != nil {
//		return err
//	}
//	defer h.Close()
//	report, err := h.Run(parbench.RunConfig{Threads: 4, Policy: parbench.Dynamic(64),
//		Reduction: parbench.LocalMerge, Sync: parbench.NoWait, Warmup: 3, Trials: 10})
package parbench
