// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cgan

import "time"

// History holds the per-iteration diagnostic series of a run.
// Every slice has the same length: the number of iterations executed.
type History struct {
	Obj  []float64 // objective = loss + penalty
	Loss []float64 // ½‖𝐱 - 𝐲‖²
	Pen  []float64 // λ·Σ𝐜 penalty surrogate
	Gap  []float64 // Frank-Wolfe duality gap certificate

	Elapsed []time.Duration // cumulative wall-clock time

	Pivots     []int // inner solver pivot count (asqp)
	ActiveVars []int // atoms with positive coefficient
}

type histRecord struct {
	obj, loss, pen, gap float64
	elapsed             time.Duration
	pivots, activeVars  int
}

// recorder accumulates per-iteration scalars. Append only: records are
// written once at their iteration index and never mutated.
type recorder struct {
	h History
}

func newRecorder(capacity int) *recorder {
	return &recorder{History{
		Obj:        make([]float64, 0, capacity),
		Loss:       make([]float64, 0, capacity),
		Pen:        make([]float64, 0, capacity),
		Gap:        make([]float64, 0, capacity),
		Elapsed:    make([]time.Duration, 0, capacity),
		Pivots:     make([]int, 0, capacity),
		ActiveVars: make([]int, 0, capacity),
	}}
}

func (r *recorder) record(rec histRecord) {
	h := &r.h
	h.Obj = append(h.Obj, rec.obj)
	h.Loss = append(h.Loss, rec.loss)
	h.Pen = append(h.Pen, rec.pen)
	h.Gap = append(h.Gap, rec.gap)
	h.Elapsed = append(h.Elapsed, rec.elapsed)
	h.Pivots = append(h.Pivots, rec.pivots)
	h.ActiveVars = append(h.ActiveVars, rec.activeVars)
}

// finalize truncates every series to the number of iterations actually
// executed, never below one.
func (r *recorder) finalize(iters int) History {
	n := max(iters, 1)
	n = min(n, len(r.h.Obj))
	h := r.h
	return History{
		Obj:        h.Obj[:n],
		Loss:       h.Loss[:n],
		Pen:        h.Pen[:n],
		Gap:        h.Gap[:n],
		Elapsed:    h.Elapsed[:n],
		Pivots:     h.Pivots[:n],
		ActiveVars: h.ActiveVars[:n],
	}
}
