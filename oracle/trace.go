// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package oracle

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// TraceNorm is the oracle of the trace-norm (nuclear-norm) unit ball. Its
// extreme points are the unit-spectral rank-one matrices 𝐮𝐯ᵀ, so the best
// atom is the top singular vector pair of the reshaped direction and the
// maximal correlation is the top singular value.
type TraceNorm struct {
	n, m int
}

// NewTraceNorm creates a trace-norm oracle for vectorized n×m matrices.
func NewTraceNorm(n, m int) *TraceNorm {
	return &TraceNorm{n: n, m: m}
}

// Propose factorizes the reshaped direction and returns vec(𝐮₁𝐯₁ᵀ).
// A failed factorization degrades to a zero atom, which the driver treats
// as an unprofitable proposal.
func (o *TraceNorm) Propose(dir []float64) (float64, []float64) {
	atom := make([]float64, o.n*o.m)

	var svd mat.SVD
	if ok := svd.Factorize(reshape(o.n, o.m, dir), mat.SVDThin); !ok {
		return 0, atom
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	u1 := make([]float64, o.n)
	v1 := make([]float64, o.m)
	for i := range u1 {
		u1[i] = u.At(i, 0)
	}
	for j := range v1 {
		v1[j] = v.At(j, 0)
	}

	outer(o.n, o.m, 1, u1, v1, atom)
	return floats.Dot(atom, dir), atom
}
