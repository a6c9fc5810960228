package vm

import (
	"fmt"

	"github.com/wudi/gscript/errs"
	"github.com/wudi/gscript/opcodes"
)

func errTypeMismatch(format string, args ...any) *errs.Error {
	return errs.NewRuntime(errs.ErrTypeMismatch, format, args...)
}

func errOutOfRange(format string, args ...any) *errs.Error {
	return errs.NewRuntime(errs.ErrOutOfRange, format, args...)
}

func errUnknownMember(format string, args ...any) *errs.Error {
	return errs.NewRuntime(errs.ErrUnknownMember, format, args...)
}

func errNotCallable(format string, args ...any) *errs.Error {
	return errs.NewRuntime(errs.ErrNotCallable, format, args...)
}

func errStackUnderflow(format string, args ...any) *errs.Error {
	return errs.NewRuntime(errs.ErrStackUnderflow, format, args...)
}

func errNilReference(format string, args ...any) *errs.Error {
	return errs.NewRuntime(errs.ErrNilReference, format, args...)
}

// decorateError tags a failing instruction with the enclosing function name
// and its ip/opcode, mirroring the teacher's vm.decorateError (a sentinel
// cause wrapped with scope + position context rather than a bespoke VMError
// type, since errs.Error already carries both).
func decorateError(frame *Frame, inst opcodes.Instruction, err error) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*errs.Error); ok {
		if e.Scope == "" {
			e.WithScope(frame.FunctionName)
		}
		e.Message = fmt.Sprintf("%s (ip=%d op=%s)", e.Message, frame.IP, inst.Op)
		return e
	}
	return errs.NewRuntime(err, "ip=%d op=%s: %v", frame.IP, inst.Op, err).WithScope(frame.FunctionName)
}
