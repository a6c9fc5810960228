package vm

import (
	"github.com/wudi/gscript/errs"
	"github.com/wudi/gscript/opcodes"
	"github.com/wudi/gscript/values"
)

func boolValue(b bool) values.Value {
	if b {
		return values.Int(1)
	}
	return values.Int(0)
}

// execArithmetic implements Add/Sub/Mul/Div (spec §4.5: "Int operands
// only (Add additionally permits string concatenation — if either operand
// is non-Int, both are stringified via the type system and concatenated)").
func (vm *VirtualMachine) execArithmetic(ctx *ExecutionContext, frame *Frame, op opcodes.Opcode) (bool, bool, error) {
	b, ok := frame.pop()
	if !ok {
		return false, false, errStackUnderflow("%s", op)
	}
	a, ok := frame.pop()
	if !ok {
		return false, false, errStackUnderflow("%s", op)
	}

	if op == opcodes.OpAdd && (!a.IsInt() || !b.IsInt()) {
		as, err := vm.stringify(ctx, a)
		if err != nil {
			return false, false, err
		}
		bs, err := vm.stringify(ctx, b)
		if err != nil {
			return false, false, err
		}
		frame.push(ctx.NewString(as + bs))
		return true, false, nil
	}

	if !a.IsInt() || !b.IsInt() {
		return false, false, errTypeMismatch("%s requires Int operands, got %s and %s", op, a.Tag, b.Tag)
	}

	switch op {
	case opcodes.OpAdd:
		frame.push(values.Int(a.Payload + b.Payload))
	case opcodes.OpSub:
		frame.push(values.Int(a.Payload - b.Payload))
	case opcodes.OpMul:
		frame.push(values.Int(a.Payload * b.Payload))
	case opcodes.OpDiv:
		if b.Payload == 0 {
			return false, false, errs.NewRuntime(errs.ErrDivisionByZero, "division by zero")
		}
		frame.push(values.Int(a.Payload / b.Payload))
	}
	return true, false, nil
}

// execComparison implements the six comparison opcodes (spec §4.5: "Int
// compare by payload; ==/!= compare Strings by content, Refs by pointer
// identity, other tags by payload").
func (vm *VirtualMachine) execComparison(ctx *ExecutionContext, frame *Frame, op opcodes.Opcode) (bool, bool, error) {
	b, ok := frame.pop()
	if !ok {
		return false, false, errStackUnderflow("%s", op)
	}
	a, ok := frame.pop()
	if !ok {
		return false, false, errStackUnderflow("%s", op)
	}

	if op == opcodes.OpEqual || op == opcodes.OpNotEqual {
		eq, err := vm.valuesEqual(ctx, a, b)
		if err != nil {
			return false, false, err
		}
		if op == opcodes.OpNotEqual {
			eq = !eq
		}
		frame.push(boolValue(eq))
		return true, false, nil
	}

	if !a.IsInt() || !b.IsInt() {
		return false, false, errTypeMismatch("%s requires Int operands, got %s and %s", op, a.Tag, b.Tag)
	}
	var result bool
	switch op {
	case opcodes.OpLessThan:
		result = a.Payload < b.Payload
	case opcodes.OpGreaterThan:
		result = a.Payload > b.Payload
	case opcodes.OpLessEqual:
		result = a.Payload <= b.Payload
	case opcodes.OpGreaterEqual:
		result = a.Payload >= b.Payload
	}
	frame.push(boolValue(result))
	return true, false, nil
}

func (vm *VirtualMachine) valuesEqual(ctx *ExecutionContext, a, b values.Value) (bool, error) {
	if a.IsString() && b.IsString() {
		as, err := ctx.StringOf(a)
		if err != nil {
			return false, err
		}
		bs, err := ctx.StringOf(b)
		if err != nil {
			return false, err
		}
		return as == bs, nil
	}
	return a.IdentityEqual(b), nil
}
