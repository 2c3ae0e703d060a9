// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cgan

import (
	"math"
)

// asqp solves the coefficient subproblem with active-set coordinate descent
// on the quadratic program
//
//	𝚖𝚒𝚗 ½𝐜ᵀ𝐇𝐜 - 𝐛ᵀ𝐜 + λ𝟏ᵀ𝐜  subject to 𝐜 ≥ 0
//
// where 𝐇 is the cached Gram block and 𝐛 the cached correlations.
//
// The KKT conditions mirror those of NNLS with the dual vector
// 𝐰 = 𝐛 - λ - 𝐇𝐜: optimality holds when 𝐰ⱼ = 0 for every positive
// coefficient and 𝐰ⱼ ≤ 0 for every zero one. Each coordinate update is a
// one-dimensional exact minimization followed by projection onto 𝐜ⱼ ≥ 0;
// a pivot is a coordinate whose zero/positive status flips.
//
// The dual vector persists in the active set between calls. On a
// warm-started sweep, zero coordinates whose stored dual is already
// nonpositive are skipped: they were inactive at the previous optimum and
// the relaxed subproblem rarely frees them again.
//
// C.L. Lawson, R.J. Hanson, 'Solving least squares problems' Prentice Hall,
// 1974 (revised 1995 edition), Chapter 23, for the active-set viewpoint.
type asqp struct {
	lambda float64
	tol    float64
}

func newASQP(lambda, mu float64) *asqp {
	_ = mu // the trace-norm weight enters through the atoms, not the QP
	return &asqp{lambda: lambda, tol: math.Sqrt(eps)}
}

func (s *asqp) Reoptimize(set *ActiveSet, budget int) (stats SolveStats) {
	k := set.count
	if k == 0 {
		return
	}
	if budget <= 0 {
		budget = 2 * k
	}

	warm := true
	for sweep := 0; sweep < budget; sweep++ {
		maxDelta := zero
		for j := 0; j < k; j++ {
			cj := set.coef[j]
			if warm && cj == zero && set.dual[j] < -s.tol {
				continue
			}
			hjj := set.gram[j*set.cap+j]
			if hjj <= zero {
				continue // degenerate atom, leave for pruning
			}
			grad := set.gramRowDot(j) - set.corr[j] + s.lambda
			nc := cj - grad/hjj
			if nc < zero {
				nc = zero
			}
			if nc == cj {
				continue
			}
			if (cj == zero) != (nc == zero) {
				stats.Pivots++
			}
			set.coef[j] = nc
			if d := math.Abs(nc - cj); d > maxDelta {
				maxDelta = d
			}
		}
		stats.Sweeps++
		if maxDelta <= s.tol {
			if warm && stats.Sweeps == 1 {
				// One full pass to release screened coordinates.
				warm = false
				continue
			}
			break
		}
		warm = false
	}

	// Refresh the dual vector for the next warm start.
	for j := 0; j < k; j++ {
		set.dual[j] = set.corr[j] - s.lambda - set.gramRowDot(j)
	}
	return
}
