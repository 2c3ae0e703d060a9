// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cgan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/csyifangli/fcgan/oracle"
)

// fixedOracle always proposes the same atom with its true correlation.
type fixedOracle struct {
	atom []float64
}

func (o *fixedOracle) Propose(dir []float64) (float64, []float64) {
	return floats.Dot(o.atom, dir), o.atom
}

// scriptOracle proposes a scripted atom per call, then zero atoms.
type scriptOracle struct {
	dim   int
	atoms [][]float64
	call  int
}

func (o *scriptOracle) Propose(dir []float64) (float64, []float64) {
	a := make([]float64, o.dim)
	if o.call < len(o.atoms) {
		a = o.atoms[o.call]
	}
	o.call++
	return floats.Dot(a, dir), a
}

// liarOracle reports a correlation its atom cannot reproduce.
type liarOracle struct {
	dim int
}

func (o *liarOracle) Propose(dir []float64) (float64, []float64) {
	return 42, make([]float64, o.dim)
}

// scriptSolver applies a scripted coefficient update per call.
type scriptSolver struct {
	call int
	fn   func(call int, set *ActiveSet)
}

func (s *scriptSolver) Reoptimize(set *ActiveSet, budget int) SolveStats {
	s.call++
	s.fn(s.call, set)
	return SolveStats{}
}

func TestNewValidation(t *testing.T) {
	l1 := oracle.NewL1(2, 2)
	for name, p := range map[string]Problem{
		"dims":    {N: 0, M: 2, Lambda: 1, Mu: 1, Oracle: l1},
		"lambda":  {N: 2, M: 2, Lambda: 0, Mu: 1, Oracle: l1},
		"mu":      {N: 2, M: 2, Lambda: 1, Mu: -1, Oracle: l1},
		"oracle":  {N: 2, M: 2, Lambda: 1, Mu: 1},
		"maxIter": {N: 2, M: 2, Lambda: 1, Mu: 1, Oracle: l1, Stop: Termination{MaxIterations: -1}},
		"epsStop": {N: 2, M: 2, Lambda: 1, Mu: 1, Oracle: l1, Stop: Termination{EpsStop: -1}},
		"atoms":   {N: 2, M: 2, Lambda: 1, Mu: 1, Oracle: l1, MaxAtoms: -1},
	} {
		_, err := p.New(nil)
		require.Error(t, err, name)
	}
}

func TestNewUnknownSolver(t *testing.T) {
	p := Problem{N: 2, M: 2, Lambda: 1, Mu: 1, Oracle: oracle.NewL1(2, 2), Method: "simplex"}
	_, err := p.New(nil)
	require.ErrorIs(t, err, ErrUnknownSolver)
}

func TestNewDefaults(t *testing.T) {
	p := Problem{N: 2, M: 2, Lambda: 1, Mu: 1, Oracle: oracle.NewL1(2, 2)}
	o, err := p.New(nil)
	require.NoError(t, err)
	require.Equal(t, defaultMaxIter, o.stop.MaxIterations)
	require.Equal(t, defaultEpsStop, o.stop.EpsStop)
	require.Equal(t, defaultMaxAtoms, o.maxAtoms)
	require.IsType(t, &asqp{}, o.solver)
}

func TestFitDimensionPanics(t *testing.T) {
	p := Problem{N: 2, M: 2, Lambda: 1, Mu: 1, Oracle: oracle.NewL1(2, 2)}
	o, err := p.New(nil)
	require.NoError(t, err)
	w := o.Init()
	require.Panics(t, func() { _, _ = o.Fit([]float64{1, 2, 3}, w) })

	q := Problem{N: 2, M: 2, Lambda: 1, Mu: 1, Oracle: oracle.NewL1(2, 2), MaxAtoms: 7}
	o2, err := q.New(nil)
	require.NoError(t, err)
	require.Panics(t, func() { _, _ = o2.Fit(make([]float64, 4), w) })
}

// A zero observation is certified optimal on the very first iteration:
// the oracle finds no correlation above lambda and the gap is exactly zero.
func TestZeroObservation(t *testing.T) {
	y := make([]float64, 6)
	p := Problem{N: 2, M: 3, Lambda: 0.5, Mu: 1, Oracle: oracle.NewL1(2, 3)}

	res, err := Solve(y, p)
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Equal(t, Converged, res.Status)
	require.Equal(t, 1, res.NumIter)
	require.Zero(t, res.NumAtoms)
	require.Len(t, res.History.Gap, 1)
	require.Zero(t, res.History.Gap[0])
	require.Equal(t, y, res.X)
}

// A single sufficient atom: after insertion and one re-optimization the gap
// falls to zero and exactly one atom is retained.
func TestSingleAtomSufficient(t *testing.T) {
	y := []float64{2, 0, 0, 0}
	p := Problem{
		N: 2, M: 2, Lambda: 0.5, Mu: 1,
		Oracle: &fixedOracle{atom: []float64{1, 0, 0, 0}},
	}

	res, err := Solve(y, p)
	require.NoError(t, err)
	require.Equal(t, Converged, res.Status)
	require.Equal(t, 2, res.NumIter)
	require.Equal(t, 1, res.NumAtoms)
	require.InDeltaSlice(t, []float64{1.5, 0, 0, 0}, res.X, 1e-12)
	require.InDelta(t, 0, res.History.Gap[1], 1e-12)
}

// With the iteration cap at one and a pair that cannot converge, the run
// must stop after exactly one iteration with MaxIterReached.
func TestIterationCap(t *testing.T) {
	y := []float64{5, 0}
	p := Problem{
		N: 2, M: 1, Lambda: 1, Mu: 1,
		Stop:   Termination{MaxIterations: 1},
		Oracle: &fixedOracle{atom: []float64{1, 0}},
	}

	res, err := Solve(y, p)
	require.NoError(t, err)
	require.False(t, res.OK)
	require.Equal(t, MaxIterReached, res.Status)
	require.Equal(t, 1, res.NumIter)
	require.Len(t, res.History.Gap, 1)
	require.Greater(t, res.History.Gap[0], p.Stop.EpsStop)
}

// When the inner solver turns a coefficient negative, the next driver step
// must drop that atom and keep the nonnegative one, caches compacted.
func TestPruneNegativeCoefficient(t *testing.T) {
	y := []float64{1, 1}
	orc := &scriptOracle{dim: 2, atoms: [][]float64{{1, 0}, {0, 1}}}
	sol := &scriptSolver{fn: func(call int, set *ActiveSet) {
		switch call {
		case 1:
			set.coef[0] = 0.6
		case 2:
			set.coef[0], set.coef[1] = -0.3, 0.8
		}
	}}

	var pruned TraceInfo
	p := Problem{
		N: 2, M: 1, Lambda: 0.5, Mu: 1,
		Stop:   Termination{MaxIterations: 4},
		Oracle: orc,
		Solver: sol,
		Trace: func(ti TraceInfo) {
			if ti.Iteration == 3 {
				pruned = TraceInfo{Atoms: ti.Atoms, Coef: append([]float64(nil), ti.Coef...)}
			}
		},
	}

	res, err := Solve(y, p)
	require.NoError(t, err)
	require.Equal(t, MaxIterReached, res.Status)

	require.Equal(t, 1, pruned.Atoms)
	require.Equal(t, []float64{0.8}, pruned.Coef)

	require.Equal(t, 1, res.NumAtoms)
	require.Equal(t, []float64{0.8}, res.Coef)
	require.Equal(t, []float64{0, 1}, res.Atoms)
	require.Len(t, res.History.Gap, 4)
	for _, g := range res.History.Gap {
		require.GreaterOrEqual(t, g, 0.0)
	}
}

func TestAtomCapacityFatal(t *testing.T) {
	y := []float64{5, 5}
	orc := &scriptOracle{dim: 2, atoms: [][]float64{{1, 0}, {0, 1}}}
	sol := &scriptSolver{fn: func(call int, set *ActiveSet) {
		set.coef[0] = 1
	}}
	p := Problem{
		N: 2, M: 1, Lambda: 1, Mu: 1,
		MaxAtoms: 1,
		Oracle:   orc,
		Solver:   sol,
	}

	res, err := Solve(y, p)
	require.ErrorIs(t, err, ErrAtomCapacity)
	require.Contains(t, err.Error(), "iteration 2")
	require.Equal(t, Failed, res.Status)
	require.False(t, res.OK)
}

func TestOracleContractFatal(t *testing.T) {
	p := Problem{N: 2, M: 1, Lambda: 0.5, Mu: 1, Oracle: &liarOracle{dim: 2}}
	res, err := Solve([]float64{1, 0}, p)
	require.ErrorIs(t, err, ErrOracleContract)
	require.Equal(t, Failed, res.Status)

	q := Problem{N: 2, M: 1, Lambda: 0.5, Mu: 1, Oracle: &liarOracle{dim: 5}}
	res, err = Solve([]float64{1, 0}, q)
	require.ErrorIs(t, err, ErrOracleContract)
	require.Equal(t, Failed, res.Status)
}

func TestReoptimizeEmptySetFatal(t *testing.T) {
	p := Problem{N: 2, M: 1, Lambda: 1, Mu: 1, Oracle: oracle.NewL1(2, 1)}
	o, err := p.New(nil)
	require.NoError(t, err)

	y := []float64{1, 0}
	w := o.Init()
	w.set.reset(y)

	d := gcgDriver{optimizer: o, workspace: w, y: y, hist: newRecorder(4)}
	d.iter = 1
	_, err = d.reoptimize()
	require.ErrorIs(t, err, ErrEmptyActiveSet)
}

func TestTimeBudget(t *testing.T) {
	y := []float64{3, 2, 0, 0}
	p := Problem{
		N: 2, M: 2, Lambda: 0.5, Mu: 1,
		Stop:   Termination{MaxIterations: 100, MaxDuration: time.Nanosecond},
		Oracle: oracle.NewL1(2, 2),
	}

	res, err := Solve(y, p)
	require.NoError(t, err)
	require.Equal(t, OverTime, res.Status)
	require.Equal(t, 1, res.NumIter)
}

// Column generation with the L1 oracle and the asqp solver reduces to a
// lasso solved one coordinate at a time: the solution is the
// soft-thresholded observation, reached in three iterations here.
func TestLassoColumnGeneration(t *testing.T) {
	y := []float64{3, 2, 0, 0}
	p := Problem{
		N: 2, M: 2, Lambda: 0.5, Mu: 1,
		Oracle: oracle.NewL1(2, 2),
	}
	o, err := p.New(nil)
	require.NoError(t, err)
	w := o.Init()

	res, err := o.Fit(y, w)
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Equal(t, Converged, res.Status)
	require.Equal(t, 3, res.NumIter)
	require.Equal(t, 2, res.NumAtoms)
	require.InDeltaSlice(t, []float64{2.5, 1.5, 0, 0}, res.X, 1e-12)

	h := res.History
	require.Len(t, h.Obj, 3)
	for i, g := range h.Gap {
		require.GreaterOrEqual(t, g, 0.0, "gap at iteration %d", i+1)
	}
	require.InDelta(t, 0, h.Gap[2], 1e-12)
	require.Equal(t, []int{0, 1, 2}, h.ActiveVars)

	// Workspace reuse across fits.
	res2, err := o.Fit(y, w)
	require.NoError(t, err)
	require.Equal(t, res.X, res2.X)
}

// The reconstruction invariant x == atoms·coef must hold at every
// iteration, checked through the trace callback against the live arena.
func TestReconstructionInvariant(t *testing.T) {
	y := []float64{3, 2, 1, 0}
	p := Problem{
		N: 2, M: 2, Lambda: 0.25, Mu: 1,
		Oracle: oracle.NewL1(2, 2),
	}
	o, err := p.New(nil)
	require.NoError(t, err)
	w := o.Init()

	o.trace = func(ti TraceInfo) {
		manual := make([]float64, len(ti.X))
		for j, c := range ti.Coef {
			floats.AddScaled(manual, c, w.set.Atom(j))
		}
		require.InDeltaSlice(t, manual, ti.X, 1e-12, "iteration %d", ti.Iteration)
		for _, c := range ti.Coef {
			require.GreaterOrEqual(t, c, 0.0)
		}
		require.LessOrEqual(t, ti.Atoms, o.maxAtoms)
	}

	res, err := o.Fit(y, w)
	require.NoError(t, err)
	require.Equal(t, Converged, res.Status)
}

// The pg solver variant reaches the same lasso solution.
func TestLassoProjGrad(t *testing.T) {
	y := []float64{3, 2, 0, 0}
	p := Problem{
		N: 2, M: 2, Lambda: 0.5, Mu: 1,
		Method:    "pg",
		WarmStart: true,
		Oracle:    oracle.NewL1(2, 2),
	}

	res, err := Solve(y, p)
	require.NoError(t, err)
	require.Equal(t, Converged, res.Status)
	require.InDeltaSlice(t, []float64{2.5, 1.5, 0, 0}, res.X, 1e-9)
	for _, pv := range res.History.Pivots {
		require.Zero(t, pv)
	}
}

// A rank-one observation under the trace-norm oracle is resolved by a
// single spectral atom, with the usual lambda shrinkage on its weight.
func TestTraceNormRankOne(t *testing.T) {
	y := []float64{2, 2, 2, 2} // vec of the rank-one all-twos 2×2 matrix
	p := Problem{
		N: 2, M: 2, Lambda: 0.5, Mu: 1,
		Oracle: oracle.NewTraceNorm(2, 2),
	}

	res, err := Solve(y, p)
	require.NoError(t, err)
	require.Equal(t, Converged, res.Status)
	require.Equal(t, 2, res.NumIter)
	require.GreaterOrEqual(t, res.NumAtoms, 1)
	require.InDeltaSlice(t, []float64{1.75, 1.75, 1.75, 1.75}, res.X, 1e-8)
	require.LessOrEqual(t, res.History.Gap[1], p.Stop.EpsStop)
	for _, g := range res.History.Gap {
		require.GreaterOrEqual(t, g, -1e-12)
	}
}

// A sparse-plus-low-rank observation under the combined oracle: the run
// must stay well-formed even though the oracle is approximate.
func TestSparseLowRankRun(t *testing.T) {
	// rank-one all-fours matrix plus one spike
	y := []float64{4 + 3, 4, 4, 4, 4, 4, 4, 4, 4}
	p := Problem{
		N: 3, M: 3, Lambda: 0.5, Mu: 1,
		Stop:   Termination{MaxIterations: 50},
		Oracle: oracle.NewSparseRankOne(3, 3, 0.5, 1),
	}

	res, err := Solve(y, p)
	require.NoError(t, err)
	require.NotEqual(t, Failed, res.Status)
	require.NotEmpty(t, res.History.Obj)
	require.LessOrEqual(t, res.NumAtoms, 500)
	for _, c := range res.Coef {
		require.GreaterOrEqual(t, c, 0.0)
	}
	// The objective of the final iterate never exceeds the zero iterate.
	first := 0.5 * floats.Dot(y, y)
	last := res.History.Obj[len(res.History.Obj)-1]
	require.LessOrEqual(t, last, first+1e-9)
}

func TestASQPIdempotentAfterConvergence(t *testing.T) {
	y := []float64{3, 2, 0, 0}
	p := Problem{
		N: 2, M: 2, Lambda: 0.5, Mu: 1,
		Oracle: oracle.NewL1(2, 2),
	}
	o, err := p.New(nil)
	require.NoError(t, err)
	w := o.Init()

	res, err := o.Fit(y, w)
	require.NoError(t, err)
	require.Equal(t, Converged, res.Status)

	before := append([]float64(nil), w.set.Coef()...)
	newASQP(p.Lambda, p.Mu).Reoptimize(w.set, 50)
	for j, c := range w.set.Coef() {
		require.InDelta(t, before[j], c, 1e-10)
	}
}
