// Package errors provides contextual errors for the I/O layers of the solver
// (instance parsing, reports, configuration and the job service).
//
// An Error names the component and operation that failed and carries the
// call stack of the place it was created, so a failed job or CLI run can be
// logged with enough context to find the bad input.
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
)

// stackDepth bounds the number of frames kept per error.
const stackDepth = 16

// Error is an error annotated with where in the solver it happened.
type Error struct {
	// Err is the wrapped cause, if any
	Err error
	// Message describes what failed
	Message string
	// Operation is the function or step that failed, e.g. "Parse"
	Operation string
	// Component is the package that failed, e.g. "tspfile"
	Component string
	// Stack holds "function file:line" frames, innermost first
	Stack []string
}

// Error formats as "component.Operation: message: cause", leaving out
// whatever is empty.
func (e *Error) Error() string {
	parts := make([]string, 0, 3)

	switch {
	case e.Component != "" && e.Operation != "":
		parts = append(parts, e.Component+"."+e.Operation)
	case e.Component != "":
		parts = append(parts, e.Component)
	case e.Operation != "":
		parts = append(parts, e.Operation)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithOperation sets the failing operation.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// WithComponent sets the failing component.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// New creates an error with a message.
func New(msg string) *Error {
	return &Error{Message: msg, Stack: callers()}
}

// Errorf creates an error with a formatted message.
func Errorf(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Stack: callers()}
}

// Wrap annotates err with msg. Is and As still see err. A nil err gives nil.
func Wrap(err error, msg string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Err: err, Message: msg, Stack: callers()}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Err: err, Message: fmt.Sprintf(format, args...), Stack: callers()}
}

// Fields returns log fields for err: "error" always, plus "component" and
// "operation" from the outermost Error in the chain that sets them.
func Fields(err error) map[string]interface{} {
	if err == nil {
		return map[string]interface{}{}
	}
	fields := map[string]interface{}{"error": err.Error()}

	for cur := err; cur != nil; cur = stderrors.Unwrap(cur) {
		e, ok := cur.(*Error)
		if !ok {
			continue
		}
		if _, set := fields["component"]; !set && e.Component != "" {
			fields["component"] = e.Component
		}
		if _, set := fields["operation"]; !set && e.Operation != "" {
			fields["operation"] = e.Operation
		}
	}
	return fields
}

// callers captures the stack of the constructor's caller, skipping runtime
// frames.
func callers() []string {
	var pcs [stackDepth]uintptr
	n := runtime.Callers(3, pcs[:])
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]string, 0, n)
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") {
			stack = append(stack, fmt.Sprintf("%s %s:%d", frame.Function, frame.File, frame.Line))
		}
		if !more {
			break
		}
	}
	return stack
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}
