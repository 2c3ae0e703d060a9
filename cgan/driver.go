// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cgan

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// gcgDriver is the main driver of the column generation loop, responsible
// for the re-optimize / prune / propose / certify cycle and for the
// convergence and termination logic.
type gcgDriver struct {
	optimizer *Optimizer
	workspace *Workspace

	y    []float64
	hist *recorder

	iter    int
	started time.Time
}

// mainLoop executes outer iterations until the duality gap falls below the
// stop tolerance, a budget is exhausted, or an invariant is violated.
func (d *gcgDriver) mainLoop() (Status, error) {

	o, w := d.optimizer, d.workspace
	stop := o.stop

	w.set.reset(d.y)
	for i := range w.x {
		w.x[i] = zero
	}
	d.started = time.Now()
	d.printInit()

	for d.iter < stop.MaxIterations {

		pivots := 0
		if d.iter > 0 {
			stats, err := d.reoptimize()
			if err != nil {
				d.printExit(Failed, err)
				return Failed, err
			}
			pivots = stats.Pivots
		}

		d.prune()
		w.set.reconstruct(w.x)
		d.iter++

		// g = x - y
		floats.SubTo(w.g, w.x, d.y)

		tau := floats.Sum(w.set.Coef())
		gnorm2 := floats.Dot(w.g, w.g)
		loss := half * gnorm2
		pen := o.lambda * tau
		obj := loss + pen

		maxval, atom, err := d.proposeAtom()
		if err != nil {
			d.printExit(Failed, err)
			return Failed, err
		}

		added := false
		if maxval > o.lambda {
			if _, ierr := w.set.insert(atom); ierr != nil {
				err = fmt.Errorf("iteration %d, %d atoms: %w", d.iter, w.set.count, ierr)
				d.printExit(Failed, err)
				return Failed, err
			}
			added = true
		}

		gap := dualityGap(o.lambda, maxval, gnorm2, tau, floats.Dot(w.g, w.x))
		elapsed := time.Since(d.started)

		d.hist.record(histRecord{
			obj: obj, loss: loss, pen: pen, gap: gap,
			elapsed:    elapsed,
			pivots:     pivots,
			activeVars: w.set.count - btoi(added),
		})
		d.printIter(obj, gap, added)

		if o.trace != nil {
			o.trace(TraceInfo{
				Iteration: d.iter,
				Obj:       obj, Loss: loss, Pen: pen, Gap: gap,
				Elapsed: elapsed,
				Atoms:   w.set.count,
				Added:   added,
				X:       w.x,
				Coef:    w.set.Coef(),
			})
		}

		if gap <= stop.EpsStop {
			d.printExit(Converged, nil)
			return Converged, nil
		}
		if stop.MaxDuration > 0 && elapsed >= stop.MaxDuration {
			d.printExit(OverTime, nil)
			return OverTime, nil
		}
	}

	d.printExit(MaxIterReached, nil)
	return MaxIterReached, nil
}

// reoptimize refines the active-set coefficients through the inner solver.
// The coefficient vector already carries the zero entry appended when the
// last atom was inserted. An empty active set here is an unrecoverable
// bookkeeping error.
func (d *gcgDriver) reoptimize() (SolveStats, error) {
	o, w := d.optimizer, d.workspace
	if w.set.count == 0 {
		return SolveStats{}, fmt.Errorf("iteration %d: %w", d.iter+1, ErrEmptyActiveSet)
	}
	budget := 2 * w.set.count
	if o.warm {
		budget *= 4
	}
	return o.solver.Reoptimize(w.set, budget), nil
}

// prune clips numerically-negative coefficients to zero, then drops every
// atom whose coefficient is non-positive, compacting the kept atoms in
// order together with the Gram, correlation and dual caches.
func (d *gcgDriver) prune() {
	set := d.workspace.set
	if set.count == 0 {
		return
	}
	keep := d.workspace.keep[:set.count]
	for j, c := range set.Coef() {
		if c < zero {
			set.coef[j] = zero
		}
		keep[j] = set.coef[j] > zero
	}
	set.compact(keep)
}

// proposeAtom queries the oracle with the negative gradient and enforces
// the oracle postcondition: the returned atom must reproduce the reported
// correlation value.
func (d *gcgDriver) proposeAtom() (float64, []float64, error) {
	o, w := d.optimizer, d.workspace
	for i, g := range w.g {
		w.dir[i] = -g
	}
	maxval, atom := o.oracle.Propose(w.dir)
	if len(atom) != o.dim {
		return zero, nil, fmt.Errorf("iteration %d: atom dimension %d: %w",
			d.iter, len(atom), ErrOracleContract)
	}
	if got := floats.Dot(atom, w.dir); math.Abs(got-maxval) > oracleTol*(one+math.Abs(maxval)) {
		return zero, nil, fmt.Errorf("iteration %d: correlation %g != reported %g: %w",
			d.iter, got, maxval, ErrOracleContract)
	}
	return maxval, atom, nil
}

// dualityGap computes the Frank-Wolfe gap certificate
//
//	𝚍𝚐 = ½(1-c)²‖𝐠‖² + λτ + c(𝐠·𝐱),  c = 𝚖𝚒𝚗(1, λ/𝚖𝚊𝚡𝚟𝚊𝚕)
//
// an upper bound on the suboptimality of the current iterate.
// When maxval ≤ λ the ratio saturates at c = 1 and the first term vanishes.
func dualityGap(lambda, maxval, gnorm2, tau, gx float64) float64 {
	c := one
	if maxval > lambda {
		c = lambda / maxval
	}
	return half*(one-c)*(one-c)*gnorm2 + lambda*tau + c*gx
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (d *gcgDriver) printInit() {
	log := d.optimizer.logger
	if log.enable(LogLast) {
		o := d.optimizer
		log.log("RUNNING THE CGAN CODE\n")
		log.log("           * * *\n")
		log.log("DIM = %d    LAMBDA = %g    MU = %g\n", o.dim, o.lambda, o.mu)
	}
}

func (d *gcgDriver) printIter(obj, gap float64, added bool) {
	log := d.optimizer.logger
	if log.enable(LogTrace) {
		log.log("\nITERATION %5d\n", d.iter)
		log.log("At iterate %5d    f= %12.5e    gap= %12.5e    atoms= %4d  added= %v\n",
			d.iter, obj, gap, d.workspace.set.count, added)
	} else if log.enable(LogEval) && d.iter%int(log.Level) == 0 {
		log.log("At iterate %5d    f= %12.5e    gap= %12.5e    atoms= %4d\n",
			d.iter, obj, gap, d.workspace.set.count)
	}
}

func (d *gcgDriver) printExit(status Status, err error) {
	log := d.optimizer.logger
	if !log.enable(LogLast) {
		return
	}
	log.log("\n           * * *\n")
	log.log("Tit   = total number of iterations\n")
	log.log("Natm  = number of atoms retained at termination\n")
	log.log("\n%6d %6d\n", d.iter, d.workspace.set.count)

	var msg string
	switch status {
	case Converged:
		msg = "CONVERGENCE: DUALITY_GAP_<=_EPS_STOP"
	case MaxIterReached:
		msg = "STOP: TOTAL NO. of ITERATIONS REACHED LIMIT"
	case OverTime:
		msg = "STOP: WALL CLOCK EXCEEDING THE TIME LIMIT"
	case Failed:
		msg = fmt.Sprintf("ABNORMAL_TERMINATION: %v", err)
	default:
		msg = "UNKNOWN TASK"
	}
	log.log("\n%s\n", msg)
	log.log("\n Total User time: %s\n", time.Since(d.started))
}
