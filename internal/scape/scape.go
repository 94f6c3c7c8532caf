// Package scape scores candidate programs. A scape is the environment a
// candidate is evaluated in; here that is a target string and engine limits.
package scape

import (
	"math"

	"bfevolve/internal/bf"
)

// Fitness is lower-is-better; zero is an exact solution.
type Fitness uint64

// ErrorPenalty scores every failed execution. Distances saturate one below
// it, so a running program always outranks a failing one.
const ErrorPenalty Fitness = math.MaxUint64

// Evaluation is the cached outcome of running one program.
type Evaluation struct {
	Result  bf.Result
	Err     *bf.ExecError
	Fitness Fitness
}

func (e Evaluation) Failed() bool {
	return e.Err != nil
}

// Scape scores programs. Implementations must be pure: the same program
// always yields the same evaluation.
type Scape interface {
	Name() string
	Evaluate(program []byte) Evaluation
}
