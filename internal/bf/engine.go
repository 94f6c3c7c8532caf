// Package bf runs programs of the eight-symbol tape language against a
// bounded tape. Execution is a pure function of the program and its limits.
package bf

import (
	"fmt"
	"strings"
)

const (
	OpIncrement = '+'
	OpDecrement = '-'
	OpLeft      = '<'
	OpRight     = '>'
	OpLoopOpen  = '['
	OpLoopClose = ']'
	OpOutput    = '.'
)

const (
	// DefaultTapeSize is the conventional tape length.
	DefaultTapeSize = 30000
	// LegacyTapeSize is the shorter tape the first version of the search used.
	LegacyTapeSize = 1000
)

// Operators is every symbol the engine acts on.
const Operators = "+-<>[]."

type OverflowPolicy int

const (
	// Wrap makes 255+1 yield 0 and 0-1 yield 255.
	Wrap OverflowPolicy = iota
	// ErrorOnOverflow aborts with LogicError instead of wrapping.
	ErrorOnOverflow
)

func (p OverflowPolicy) String() string {
	switch p {
	case Wrap:
		return "wrap"
	case ErrorOnOverflow:
		return "error"
	default:
		return fmt.Sprintf("OverflowPolicy(%d)", int(p))
	}
}

func ParseOverflowPolicy(name string) (OverflowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "wrap":
		return Wrap, nil
	case "error", "error_on_overflow", "error-on-overflow":
		return ErrorOnOverflow, nil
	default:
		return 0, fmt.Errorf("unsupported overflow policy: %s", name)
	}
}

// Limits bounds a single execution. An InstructionLimit of zero means
// unbounded and is only meant for trusted programs.
type Limits struct {
	InstructionLimit uint64
	TapeSize         int
	Overflow         OverflowPolicy
}

type Result struct {
	Output       []byte
	Instructions uint64
}

// Validate rejects programs whose brackets do not balance or whose prefix
// closes more loops than it opened.
func Validate(program []byte) error {
	depth := 0
	for i, op := range program {
		switch op {
		case OpLoopOpen:
			depth++
		case OpLoopClose:
			depth--
			if depth < 0 {
				return &ExecError{Kind: SyntaxError, Position: i}
			}
		}
	}
	if depth != 0 {
		return &ExecError{Kind: SyntaxError, Position: len(program)}
	}
	return nil
}

// MatchBrackets maps every bracket index to its partner in one pass.
// Non-bracket positions, and brackets without a partner, map to -1.
func MatchBrackets(program []byte) []int {
	jumps := make([]int, len(program))
	open := make([]int, 0, 16)
	for i, op := range program {
		jumps[i] = -1
		switch op {
		case OpLoopOpen:
			open = append(open, i)
		case OpLoopClose:
			if len(open) == 0 {
				continue
			}
			partner := open[len(open)-1]
			open = open[:len(open)-1]
			jumps[partner] = i
			jumps[i] = partner
		}
	}
	return jumps
}

// Execute runs program to completion. Every visited program position costs
// one instruction, filler included; a taken jump costs exactly one. Any error
// is an *ExecError and no partial output is returned with it.
func Execute(program []byte, limits Limits) (Result, error) {
	if err := Validate(program); err != nil {
		return Result{}, err
	}
	jumps := MatchBrackets(program)

	tapeSize := limits.TapeSize
	if tapeSize <= 0 {
		tapeSize = 1
	}
	tape := make([]byte, tapeSize)
	last := tapeSize - 1
	checked := limits.Overflow == ErrorOnOverflow

	var (
		output []byte
		steps  uint64
		ptr    int
	)
	for pc := 0; pc < len(program); {
		if limits.InstructionLimit != 0 && steps == limits.InstructionLimit {
			return Result{}, &ExecError{Kind: InstrLimitExceeded, Instructions: steps, Position: pc}
		}
		steps++

		switch program[pc] {
		case OpIncrement:
			if checked && tape[ptr] == 0xff {
				return Result{}, &ExecError{Kind: LogicError, Instructions: steps, Position: pc}
			}
			tape[ptr]++
		case OpDecrement:
			if checked && tape[ptr] == 0 {
				return Result{}, &ExecError{Kind: LogicError, Instructions: steps, Position: pc}
			}
			tape[ptr]--
		case OpRight:
			if ptr == last {
				return Result{}, &ExecError{Kind: LogicError, Instructions: steps, Position: pc}
			}
			ptr++
		case OpLeft:
			if ptr == 0 {
				return Result{}, &ExecError{Kind: LogicError, Instructions: steps, Position: pc}
			}
			ptr--
		case OpLoopOpen:
			if tape[ptr] == 0 {
				pc = jumps[pc] + 1
				continue
			}
		case OpLoopClose:
			if tape[ptr] != 0 {
				pc = jumps[pc] + 1
				continue
			}
		case OpOutput:
			output = append(output, tape[ptr])
		}
		pc++
	}

	return Result{Output: output, Instructions: steps}, nil
}
