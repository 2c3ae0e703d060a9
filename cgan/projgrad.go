// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cgan

import (
	"math"
)

// projGrad solves the coefficient subproblem with projected gradient steps
//
//	𝐜 ← 𝚖𝚊𝚡(0, 𝐜 - α(𝐇𝐜 - 𝐛 + λ𝟏))
//
// using the Gershgorin bound 𝐿 = 𝚖𝚊𝚡ⱼ Σᵢ|𝐇ⱼᵢ| and the fixed step α = 1/𝐿.
// Simpler than asqp and reports no pivots; useful as a cross-check solver.
type projGrad struct {
	lambda float64
	tol    float64
}

func newProjGrad(lambda float64) *projGrad {
	return &projGrad{lambda: lambda, tol: math.Sqrt(eps)}
}

func (s *projGrad) Reoptimize(set *ActiveSet, budget int) (stats SolveStats) {
	k := set.count
	if k == 0 {
		return
	}
	if budget <= 0 {
		budget = 20 * k
	}

	lip := zero
	for j := 0; j < k; j++ {
		row := zero
		for i := 0; i < k; i++ {
			row += math.Abs(set.gram[j*set.cap+i])
		}
		lip = math.Max(lip, row)
	}
	if lip <= zero {
		return
	}
	step := one / lip

	for it := 0; it < budget; it++ {
		maxDelta := zero
		for j := 0; j < k; j++ {
			grad := set.gramRowDot(j) - set.corr[j] + s.lambda
			nc := set.coef[j] - step*grad
			if nc < zero {
				nc = zero
			}
			if d := math.Abs(nc - set.coef[j]); d > maxDelta {
				maxDelta = d
			}
			set.coef[j] = nc
		}
		stats.Sweeps++
		if maxDelta <= s.tol {
			break
		}
	}

	for j := 0; j < k; j++ {
		set.dual[j] = set.corr[j] - s.lambda - set.gramRowDot(j)
	}
	return
}
