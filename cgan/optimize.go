// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cgan estimates a simultaneously sparse and low-rank matrix by
// minimizing
//
//	½‖𝐱 - 𝐲‖² + λ‖𝐱‖₁ + μ‖𝐱‖ₓ
//
// with a generalized conditional-gradient (Frank-Wolfe) column generation
// loop. Each outer iteration queries a linear minimization oracle for a new
// atom, re-optimizes the nonnegative coefficients of the active set with an
// inner active-set solver, and certifies progress with a computable duality
// gap used as the stopping criterion.
package cgan

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"
)

// LogLevel controls the frequency and type of logger output.
type LogLevel int

const (
	// LogNoop no output is generated (level < 0)
	LogNoop LogLevel = -1
	// LogLast print only the run summary at termination
	LogLast LogLevel = 0
	// LogEval print objective and gap every `level` iterations (0 < level < 99)
	LogEval LogLevel = 1
	// LogTrace print details of every iteration
	LogTrace LogLevel = 99
)

// Logger handles logging output for the solver.
// Note the writer must be thread-safe.
type Logger struct {
	Level LogLevel
	Msg   io.Writer // Writer to output log messages.
}

func (l *Logger) enable(level LogLevel) bool {
	return l.Level >= level
}

func (l *Logger) log(format string, a ...any) {
	if len(a) > 0 {
		_, _ = fmt.Fprintf(l.Msg, format, a...)
	} else {
		_, _ = fmt.Fprint(l.Msg, format)
	}
}

// AtomOracle is the linear minimization oracle over the penalty's unit ball.
//
// Propose returns the atom maximizing the correlation with dir together
// with that maximal value. The returned atom must reproduce the value:
// 𝐚·𝚍𝚒𝚛 == maxval, and the value must be the true maximum over the ball,
// otherwise the duality-gap certificate is invalid. Propose must be pure.
type AtomOracle interface {
	Propose(dir []float64) (maxval float64, atom []float64)
}

// TraceInfo is the per-iteration snapshot passed to the trace callback.
// The X and Coef slices are live views, valid only during the call.
type TraceInfo struct {
	Iteration int
	Obj       float64
	Loss      float64
	Pen       float64
	Gap       float64
	Elapsed   time.Duration
	Atoms     int
	Added     bool
	X         []float64
	Coef      []float64
}

// Termination specifies the stopping criteria for the column generation loop.
type Termination struct {
	// The iteration stop when the number of iteration exceeds limit.
	MaxIterations int
	// The iteration stop when the duality gap falls below tolerance.
	EpsStop float64
	// Optional wall-clock budget for the whole run.
	MaxDuration time.Duration
}

// Problem specifies a sparse plus low-rank estimation problem.
type Problem struct {
	N, M   int         // The matrix dimensions; vectors have length N*M
	Lambda float64     // The entrywise-L1 weight (required, > 0)
	Mu     float64     // The trace-norm weight (required, > 0)
	Stop   Termination // Stop condition
	// MaxAtoms is the active-set capacity, pre-allocated once (default 500).
	MaxAtoms int
	// Method selects the inner coefficient solver: "asqp" (default) or "pg".
	Method string
	// Solver, when set, is used as the inner coefficient solver and Method
	// is ignored. Selection happens once here, never inside the loop.
	Solver ActiveSetSolver
	// WarmStart increases the inner solver's iteration budget, trusting the
	// dual state threaded through successive calls.
	WarmStart bool
	// Oracle proposes new atoms (required).
	Oracle AtomOracle
	// Trace, when set, is invoked once per iteration after recording.
	Trace func(TraceInfo)
}

const (
	defaultMaxIter  = 500
	defaultMaxAtoms = 500
	defaultEpsStop  = 1e-5
)

// New creates a new column generation solver for the given problem.
func (p *Problem) New(logger *Logger) (optimizer *Optimizer, err error) {

	if logger == nil {
		logger = new(Logger)
		logger.Level = LogNoop
	}
	if logger.Msg == nil {
		logger.Msg = os.Stdout
	}

	stop := p.Stop
	if stop.MaxIterations == 0 {
		stop.MaxIterations = defaultMaxIter
	}
	if stop.EpsStop == 0 {
		stop.EpsStop = defaultEpsStop
	}
	maxAtoms := p.MaxAtoms
	if maxAtoms == 0 {
		maxAtoms = defaultMaxAtoms
	}

	solver, known := p.Solver, true
	if solver == nil {
		solver, known = solverFor(p.Method, p.Lambda, p.Mu)
	}

	switch {
	case p.N <= 0 || p.M <= 0:
		err = errors.New("matrix dimensions must greater than 0")
	case p.Lambda <= zero || math.IsNaN(p.Lambda):
		err = errors.New("L1 weight lambda must greater than 0")
	case p.Mu <= zero || math.IsNaN(p.Mu):
		err = errors.New("trace-norm weight mu must greater than 0")
	case p.Oracle == nil:
		err = errors.New("atom oracle is required")
	case stop.MaxIterations < 0:
		err = errors.New("max iteration must greater than 0")
	case stop.EpsStop < zero || math.IsNaN(stop.EpsStop):
		err = errors.New("gap tolerance must not less than 0")
	case maxAtoms < 0:
		err = errors.New("atom capacity must greater than 0")
	case !known:
		err = fmt.Errorf("%w: %q", ErrUnknownSolver, p.Method)
	}

	if err != nil {
		return
	}

	optimizer = &Optimizer{
		gcgSpec{
			dim:      p.N * p.M,
			lambda:   p.Lambda,
			mu:       p.Mu,
			stop:     stop,
			maxAtoms: maxAtoms,
			warm:     p.WarmStart,
			oracle:   p.Oracle,
			solver:   solver,
			trace:    p.Trace,
			logger:   *logger,
		},
	}
	return
}

type gcgSpec struct {
	dim        int
	lambda, mu float64
	stop       Termination
	maxAtoms   int
	warm       bool
	oracle     AtomOracle
	solver     ActiveSetSolver
	trace      func(TraceInfo)
	logger     Logger
}

// Optimizer implements the generalized conditional gradient algorithm.
type Optimizer struct {
	gcgSpec
}

// Workspace contains the state of one run: the pre-allocated active-set
// arena and the scratch vectors of the outer loop. Multiple workspaces may
// share one optimizer, but a workspace must not be used concurrently.
type Workspace struct {
	dim, cap int

	set  *ActiveSet
	x    []float64
	g    []float64
	dir  []float64
	keep []bool
}

// Init allocates a workspace sized for the optimizer. The active-set arena
// is allocated once to capacity and reused across Fit calls.
func (o *Optimizer) Init() *Workspace {
	return &Workspace{
		dim: o.dim, cap: o.maxAtoms,
		set:  newActiveSet(o.dim, o.maxAtoms),
		x:    make([]float64, o.dim),
		g:    make([]float64, o.dim),
		dir:  make([]float64, o.dim),
		keep: make([]bool, o.maxAtoms),
	}
}

// Summary contains a summary of one run.
type Summary struct {
	Status   Status // Terminal status of the run.
	NumIter  int    // Number of outer iterations performed.
	NumAtoms int    // Number of atoms retained at termination.
}

// Result contains the final result of one run.
type Result struct {
	OK      bool      // Whether the run converged.
	X       []float64 // Final iterate (vectorized n×m matrix).
	Coef    []float64 // Final atom coefficients.
	Atoms   []float64 // Final atoms, dim × NumAtoms column-major.
	History History   // Per-iteration diagnostics.
	Summary
}

// Fit runs the column generation loop against the observation y.
// Non-convergence within the iteration or time budget is not an error: the
// best iterate and the full history are returned with the matching status.
// A non-nil error reports a fatal invariant violation and Status Failed.
func (o *Optimizer) Fit(y []float64, w *Workspace) (*Result, error) {

	if len(y) != o.dim {
		panic("observation dimension not match spec")
	}
	if w.dim != o.dim || w.cap != o.maxAtoms {
		panic("workspace dimension not match spec")
	}

	d := gcgDriver{
		optimizer: o,
		workspace: w,
		y:         y,
		hist:      newRecorder(o.stop.MaxIterations),
	}

	status, err := d.mainLoop()

	set := w.set
	res := &Result{
		OK:      status == Converged,
		X:       append([]float64(nil), w.x...),
		Coef:    append([]float64(nil), set.coef[:set.count]...),
		Atoms:   append([]float64(nil), set.atoms[:set.count*set.dim]...),
		History: d.hist.finalize(d.iter),
		Summary: Summary{
			Status:   status,
			NumIter:  d.iter,
			NumAtoms: set.count,
		},
	}
	return res, err
}

// Solve is a convenience wrapper: validate the problem, allocate a
// workspace and fit the observation y in one call.
func Solve(y []float64, p Problem) (*Result, error) {
	o, err := p.New(nil)
	if err != nil {
		return nil, err
	}
	return o.Fit(y, o.Init())
}
