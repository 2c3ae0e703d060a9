// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package oracle

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SparseRankOne proposes atoms for the combined penalty λ‖·‖₁ + μ‖·‖ₓ:
// sparse rank-one matrices s·𝐮𝐯ᵀ scaled to unit combined gauge
//
//	λ‖s𝐮𝐯ᵀ‖₁ + μ‖s𝐮𝐯ᵀ‖ₓ = λ + μ.
//
// The exact linear minimization over this ball is NP-hard, so the factors
// are found by truncated power iteration: alternating matrix-vector
// products with entrywise soft-thresholding, the thresholding fraction
// growing with the sparsity weight λ. The reported correlation is computed
// from the returned atom, so the caller-side postcondition holds exactly
// even though the maximum is approximate.
type SparseRankOne struct {
	n, m       int
	lambda, mu float64
	iters      int
}

// NewSparseRankOne creates a combined-penalty oracle for vectorized n×m
// matrices with the given penalty weights.
func NewSparseRankOne(n, m int, lambda, mu float64) *SparseRankOne {
	return &SparseRankOne{n: n, m: m, lambda: lambda, mu: mu, iters: 20}
}

// Propose returns a sparse rank-one atom correlated with dir.
func (o *SparseRankOne) Propose(dir []float64) (float64, []float64) {
	atom := make([]float64, o.n*o.m)
	g := reshape(o.n, o.m, dir)

	// Deterministic start: the column holding the largest entry.
	jmax, vmax := 0, 0.0
	for j := 0; j < o.m; j++ {
		for i := 0; i < o.n; i++ {
			if a := math.Abs(g.At(i, j)); a > vmax {
				vmax, jmax = a, j
			}
		}
	}
	if vmax == 0 {
		return 0, atom
	}

	u := make([]float64, o.n)
	v := make([]float64, o.m)
	mat.Col(u, jmax, g)
	normalize(u)

	frac := o.lambda / (o.lambda + o.mu)
	for t := 0; t < o.iters; t++ {
		mulTransVec(g, u, v) // v = 𝐆ᵀu
		threshold(v, frac)
		if !normalize(v) {
			break
		}
		mulVec(g, v, u) // u = 𝐆v
		threshold(u, frac)
		if !normalize(u) {
			break
		}
	}

	// Unit combined gauge: λ‖u‖₁‖v‖₁ + μ = (λ+μ)/s.
	s := (o.lambda + o.mu) / (o.lambda*floats.Norm(u, 1)*floats.Norm(v, 1) + o.mu)
	outer(o.n, o.m, s, u, v, atom)
	return floats.Dot(atom, dir), atom
}

func mulVec(g *mat.Dense, v, dst []float64) {
	n, _ := g.Dims()
	res := mat.NewVecDense(n, dst)
	res.MulVec(g, mat.NewVecDense(len(v), v))
}

func mulTransVec(g *mat.Dense, u, dst []float64) {
	_, m := g.Dims()
	res := mat.NewVecDense(m, dst)
	res.MulVec(g.T(), mat.NewVecDense(len(u), u))
}

// threshold zeroes the entries below frac of the largest magnitude.
func threshold(v []float64, frac float64) {
	cut := 0.0
	for _, x := range v {
		cut = math.Max(cut, math.Abs(x))
	}
	cut *= frac
	for i, x := range v {
		if math.Abs(x) < cut {
			v[i] = 0
		}
	}
}

func normalize(v []float64) bool {
	n := floats.Norm(v, 2)
	if n == 0 {
		return false
	}
	floats.Scale(1/n, v)
	return true
}
