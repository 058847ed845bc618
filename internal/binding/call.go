package binding

import (
	"errors"
	"fmt"

	"github.com/san-kum/dyngraph/internal/dynamo"
)

// Code classifies the outcome of a call across the binding boundary.
type Code int

const (
	CodeOK Code = iota
	CodeConstruction
	CodeConfiguration
	CodeInvalidParameter
	CodeInvalidHandle
	CodeDimension
	CodeInvalidState
	CodeInternal
)

var codeNames = [...]string{
	CodeOK:               "ok",
	CodeConstruction:     "construction error",
	CodeConfiguration:    "configuration error",
	CodeInvalidParameter: "invalid parameter",
	CodeInvalidHandle:    "invalid handle",
	CodeDimension:        "dimension mismatch",
	CodeInvalidState:     "invalid state",
	CodeInternal:         "internal error",
}

func (c Code) String() string {
	if c >= 0 && int(c) < len(codeNames) {
		return codeNames[c]
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// CodeOf maps an error to its code. Errors of no known kind are internal.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrInvalidHandle):
		return CodeInvalidHandle
	case errors.Is(err, dynamo.ErrConstruction):
		return CodeConstruction
	case errors.Is(err, dynamo.ErrConfiguration):
		return CodeConfiguration
	case errors.Is(err, dynamo.ErrInvalidParameter):
		return CodeInvalidParameter
	case errors.Is(err, dynamo.ErrDimensionMismatch):
		return CodeDimension
	case errors.Is(err, dynamo.ErrInvalidState):
		return CodeInvalidState
	}
	return CodeInternal
}

// Result is what a scripting caller sees of a call.
type Result struct {
	Code    Code
	Message string
}

func (r Result) OK() bool { return r.Code == CodeOK }

func (r Result) String() string {
	if r.Message == "" {
		return r.Code.String()
	}
	return r.Code.String() + ": " + r.Message
}

// Call runs fn and reports its outcome. A panic inside fn is recovered and
// reported as CodeInternal.
func Call(fn func() error) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Code: CodeInternal, Message: fmt.Sprintf("panic: %v", r)}
		}
	}()
	return resultOf(fn())
}

// CallValue is Call for functions that return a value. The zero value is
// returned on failure.
func CallValue[T any](fn func() (T, error)) (v T, res Result) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v, res = zero, Result{Code: CodeInternal, Message: fmt.Sprintf("panic: %v", r)}
		}
	}()
	v, err := fn()
	if err != nil {
		var zero T
		return zero, resultOf(err)
	}
	return v, Result{}
}

func resultOf(err error) Result {
	if err == nil {
		return Result{}
	}
	return Result{Code: CodeOf(err), Message: err.Error()}
}
