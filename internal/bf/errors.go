package bf

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of ways an execution can fail.
type ErrorKind int

const (
	SyntaxError ErrorKind = iota + 1
	InstrLimitExceeded
	LogicError
)

var (
	ErrSyntax     = errors.New("syntax error")
	ErrInstrLimit = errors.New("instruction limit exceeded")
	ErrLogic      = errors.New("logic error")
)

func (k ErrorKind) String() string {
	switch k {
	case SyntaxError:
		return "SyntaxError"
	case InstrLimitExceeded:
		return "InstrLimitExceeded"
	case LogicError:
		return "LogicError"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case SyntaxError:
		return ErrSyntax
	case InstrLimitExceeded:
		return ErrInstrLimit
	case LogicError:
		return ErrLogic
	default:
		return nil
	}
}

// ErrorKinds lists every kind in declaration order.
func ErrorKinds() []ErrorKind {
	return []ErrorKind{SyntaxError, InstrLimitExceeded, LogicError}
}

// ExecError reports why an execution aborted. Instructions is the number of
// steps executed before the abort and Position the program index involved.
type ExecError struct {
	Kind         ErrorKind
	Instructions uint64
	Position     int
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s at position %d after %d instructions", e.Kind.sentinel(), e.Position, e.Instructions)
}

func (e *ExecError) Unwrap() error {
	return e.Kind.sentinel()
}

// AsExecError unwraps err into an *ExecError when it is one.
func AsExecError(err error) (*ExecError, bool) {
	var execErr *ExecError
	if errors.As(err, &execErr) {
		return execErr, true
	}
	return nil, false
}
