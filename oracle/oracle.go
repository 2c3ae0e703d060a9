// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package oracle provides linear minimization oracles over penalty unit
// balls for the column generation solver in package cgan.
//
// Every oracle maps a direction vector (the negative gradient, a
// vectorized n×m matrix in column-major order) to the atom maximizing the
// correlation with it, together with that maximal value. The reported
// value is always computed from the returned atom, so the caller-side
// postcondition 𝐚·𝚍𝚒𝚛 == maxval holds exactly.
package oracle

import (
	"gonum.org/v1/gonum/mat"
)

// reshape copies a column-major n×m vector into a dense matrix.
func reshape(n, m int, v []float64) *mat.Dense {
	g := mat.NewDense(n, m, nil)
	for j := 0; j < m; j++ {
		for i := 0; i < n; i++ {
			g.Set(i, j, v[i+j*n])
		}
	}
	return g
}

// outer writes the column-major vectorization of 𝐮𝐯ᵀ scaled by s into dst.
func outer(n, m int, s float64, u, v, dst []float64) {
	for j := 0; j < m; j++ {
		sv := s * v[j]
		for i := 0; i < n; i++ {
			dst[i+j*n] = sv * u[i]
		}
	}
}
