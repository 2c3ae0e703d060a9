// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cgan

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
)

// ActiveSet is a fixed-capacity arena of atoms with nonnegative coefficients.
//
// All storage is allocated once to capacity and mutated in place: insertion
// appends a column in O(dim), pruning compacts the kept columns in order.
// The arena is never reallocated so the hot loop stays allocation free.
//
// Parallel to the atom columns the arena caches:
//   - the Gram matrix 𝐇ᵢⱼ = 𝐚ᵢ·𝐚ⱼ (valid block is the leading count×count),
//   - the correlations 𝐛ᵢ = 𝐚ᵢ·𝐲 against the current observation,
//   - a per-atom dual value threaded through successive solver calls.
type ActiveSet struct {
	dim, cap int
	count    int

	atoms []float64 // dim × cap, column-major
	coef  []float64 // cap
	gram  []float64 // cap × cap, row-major
	corr  []float64 // cap
	dual  []float64 // cap

	y []float64 // observation, set by reset
}

func newActiveSet(dim, capacity int) *ActiveSet {
	return &ActiveSet{
		dim: dim, cap: capacity,
		atoms: make([]float64, dim*capacity),
		coef:  make([]float64, capacity),
		gram:  make([]float64, capacity*capacity),
		corr:  make([]float64, capacity),
		dual:  make([]float64, capacity),
	}
}

// reset empties the set and binds it to a new observation vector.
func (s *ActiveSet) reset(y []float64) {
	s.count = 0
	s.y = y
}

// Count returns the number of live atoms.
func (s *ActiveSet) Count() int { return s.count }

// Dim returns the atom dimension.
func (s *ActiveSet) Dim() int { return s.dim }

// Coef returns the live coefficient slice. The caller must not grow it.
func (s *ActiveSet) Coef() []float64 { return s.coef[:s.count] }

// Atom returns the j-th live atom column. The caller must not mutate it.
func (s *ActiveSet) Atom(j int) []float64 {
	return s.atoms[j*s.dim : (j+1)*s.dim : (j+1)*s.dim]
}

// Gram returns the cached inner product 𝐚ᵢ·𝐚ⱼ.
func (s *ActiveSet) Gram(i, j int) float64 { return s.gram[i*s.cap+j] }

// Corr returns the cached correlation 𝐚ⱼ·𝐲.
func (s *ActiveSet) Corr(j int) float64 { return s.corr[j] }

// insert appends atom at the next free column, with a zero coefficient and
// zero dual value, and extends the Gram and correlation caches.
func (s *ActiveSet) insert(atom []float64) (int, error) {
	if s.count >= s.cap {
		return -1, ErrAtomCapacity
	}
	j := s.count
	copy(s.atoms[j*s.dim:(j+1)*s.dim], atom)
	aj := s.Atom(j)
	for i := 0; i < j; i++ {
		h := floats.Dot(s.Atom(i), aj)
		s.gram[i*s.cap+j] = h
		s.gram[j*s.cap+i] = h
	}
	s.gram[j*s.cap+j] = floats.Dot(aj, aj)
	s.corr[j] = floats.Dot(aj, s.y)
	s.coef[j] = zero
	s.dual[j] = zero
	s.count++
	return j, nil
}

// compact removes the atoms whose keep bit is false, preserving the relative
// order of the kept atoms and shifting the coefficient, correlation, dual and
// Gram caches to match. An empty result is legal here; the driver decides
// whether emptiness is fatal.
func (s *ActiveSet) compact(keep []bool) {
	if s.count == 0 {
		return
	}
	_ = keep[s.count-1]

	k := 0
	for j := 0; j < s.count; j++ {
		if !keep[j] {
			continue
		}
		if k != j {
			copy(s.atoms[k*s.dim:(k+1)*s.dim], s.atoms[j*s.dim:(j+1)*s.dim])
			s.coef[k] = s.coef[j]
			s.corr[k] = s.corr[j]
			s.dual[k] = s.dual[j]
		}
		k++
	}

	// Gather the kept Gram block up-left. Destination indices never exceed
	// their sources, so the in-place gather is safe.
	ki := 0
	for i := 0; i < s.count; i++ {
		if !keep[i] {
			continue
		}
		kj := 0
		for j := 0; j < s.count; j++ {
			if !keep[j] {
				continue
			}
			s.gram[ki*s.cap+kj] = s.gram[i*s.cap+j]
			kj++
		}
		ki++
	}

	s.count = k
}

// reconstruct writes atoms[:, :count]·coef into dst.
func (s *ActiveSet) reconstruct(dst []float64) {
	if s.count == 0 {
		for i := range dst {
			dst[i] = zero
		}
		return
	}
	// The column-major atom arena is a count×dim row-major matrix whose
	// rows are the atoms, so the combination is the transposed product.
	a := blas64.General{
		Rows: s.count, Cols: s.dim, Stride: s.dim,
		Data: s.atoms[:s.count*s.dim],
	}
	c := blas64.Vector{N: s.count, Inc: 1, Data: s.coef[:s.count]}
	x := blas64.Vector{N: s.dim, Inc: 1, Data: dst}
	blas64.Gemv(blas.Trans, one, a, c, zero, x)
}

// gramRowDot returns row j of the valid Gram block dotted with the live
// coefficients, i.e. (𝐇𝐜)ⱼ.
func (s *ActiveSet) gramRowDot(j int) float64 {
	return floats.Dot(s.gram[j*s.cap:j*s.cap+s.count], s.coef[:s.count])
}
