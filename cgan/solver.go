// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cgan

// SolveStats summarizes one inner re-optimization call.
type SolveStats struct {
	// Pivots counts elementary active-set updates: coordinates whose
	// zero/positive status flipped during the call.
	Pivots int
	// Sweeps counts full passes over the coefficient vector.
	Sweeps int
}

// ActiveSetSolver re-optimizes the coefficients of the current active set:
//
//	𝚖𝚒𝚗 ½‖Σⱼ𝐜ⱼ𝐚ⱼ - 𝐲‖² + λΣⱼ𝐜ⱼ  subject to 𝐜 ≥ 0
//
// working entirely on the cached Gram block and correlations of the set.
// The refined coefficients are written in place; entries may be negative
// only as numerical noise, which the driver clips before pruning. The
// solver must not change the atom count. The per-atom dual values stored
// in the set are warm-start state owned by the solver and opaque to the
// driver: they survive compaction and are threaded into the next call.
type ActiveSetSolver interface {
	Reoptimize(set *ActiveSet, budget int) SolveStats
}

// solverFor maps a method selector to a solver, resolved once at
// configuration time so the hot loop never dispatches by string.
func solverFor(method string, lambda, mu float64) (ActiveSetSolver, bool) {
	switch method {
	case "", "asqp":
		return newASQP(lambda, mu), true
	case "pg":
		return newProjGrad(lambda), true
	}
	return nil, false
}
