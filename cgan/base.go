// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cgan

import (
	"errors"
)

const (
	zero = 0.0
	one  = 1.0
	half = 0.5
	eps  = float64(7)/3 - float64(4)/3 - 1.
)

// oracleTol bounds the allowed mismatch between the correlation value
// reported by an oracle and the correlation of the atom it returned.
const oracleTol = 1e-8

// Status describes the terminal state of a column generation run.
type Status int

const (
	// Running the iteration is still in progress.
	Running Status = iota
	// Converged the duality gap fell below the stop tolerance.
	Converged
	// MaxIterReached the iteration limit was exhausted before convergence.
	MaxIterReached
	// OverTime the wall-clock budget was exhausted before convergence.
	OverTime
	// Failed an invariant was violated and the run was aborted.
	Failed
)

func (s Status) String() string {
	switch s {
	case Running:
		return "RUNNING"
	case Converged:
		return "CONVERGED"
	case MaxIterReached:
		return "MAX_ITER_REACHED"
	case OverTime:
		return "OVER_TIME"
	case Failed:
		return "FAILED"
	}
	return "UNKNOWN"
}

var (
	// ErrEmptyActiveSet reports a re-optimization request against an empty
	// active set. This signals a bookkeeping bug, not a solvable state.
	ErrEmptyActiveSet = errors.New("cgan: active set is empty")
	// ErrAtomCapacity reports an insertion beyond the pre-allocated
	// active-set capacity.
	ErrAtomCapacity = errors.New("cgan: atom capacity exceeded")
	// ErrOracleContract reports an oracle whose returned atom does not
	// reproduce the correlation value it claimed.
	ErrOracleContract = errors.New("cgan: oracle postcondition violated")
	// ErrUnknownSolver reports an unrecognized inner solver selector.
	ErrUnknownSolver = errors.New("cgan: unknown inner solver")
)
