package scape

import (
	"fmt"

	"bfevolve/internal/bf"

	"golang.org/x/exp/constraints"
)

// TargetScape scores programs by how far their output is from Target.
type TargetScape struct {
	Target []byte
	Limits bf.Limits
}

func NewTargetScape(target string, limits bf.Limits) (*TargetScape, error) {
	if target == "" {
		return nil, fmt.Errorf("target string is required")
	}
	if limits.TapeSize <= 0 {
		return nil, fmt.Errorf("tape size must be > 0")
	}
	if limits.InstructionLimit == 0 {
		return nil, fmt.Errorf("instruction limit must be > 0 for evolved programs")
	}
	return &TargetScape{Target: []byte(target), Limits: limits}, nil
}

func (s *TargetScape) Name() string {
	return "target"
}

func (s *TargetScape) Evaluate(program []byte) Evaluation {
	res, err := bf.Execute(program, s.Limits)
	if err != nil {
		execErr, ok := bf.AsExecError(err)
		if !ok {
			execErr = &bf.ExecError{Kind: bf.LogicError}
		}
		return Evaluation{Err: execErr, Fitness: ErrorPenalty}
	}
	return Evaluation{Result: res, Fitness: Distance(res.Output, s.Target)}
}

// Distance sums absolute byte differences over the overlap and the raw byte
// values of whichever tail is longer.
func Distance(output, target []byte) Fitness {
	limit := uint64(ErrorPenalty - 1)
	var total uint64
	add := func(v uint64) {
		if total > limit-v {
			total = limit
			return
		}
		total += v
	}

	overlap := min(len(output), len(target))
	for i := 0; i < overlap; i++ {
		add(uint64(absDiff(output[i], target[i])))
	}
	for _, b := range output[overlap:] {
		add(uint64(b))
	}
	for _, b := range target[overlap:] {
		add(uint64(b))
	}
	return Fitness(total)
}

func absDiff[T constraints.Integer](a, b T) T {
	if a > b {
		return a - b
	}
	return b - a
}
