// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package oracle

import (
	"math"
)

// L1 is the oracle of the entrywise-L1 unit ball. Its extreme points are
// the signed unit coordinate vectors, so the best atom places ±1 at the
// entry of largest magnitude.
type L1 struct {
	n, m int
}

// NewL1 creates an L1 oracle for vectorized n×m matrices.
func NewL1(n, m int) *L1 {
	return &L1{n: n, m: m}
}

// Propose returns the signed unit coordinate atom best correlated with dir.
// A zero direction yields a zero atom with zero correlation.
func (o *L1) Propose(dir []float64) (float64, []float64) {
	best, idx := 0.0, -1
	for i, v := range dir {
		if a := math.Abs(v); a > best {
			best, idx = a, i
		}
	}
	atom := make([]float64, o.n*o.m)
	if idx >= 0 {
		if dir[idx] < 0 {
			atom[idx] = -1
		} else {
			atom[idx] = 1
		}
	}
	return best, atom
}
