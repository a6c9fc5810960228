package vm

import (
	"github.com/wudi/gscript/errs"
	"github.com/wudi/gscript/opcodes"
	"github.com/wudi/gscript/values"
)

// executeInstruction dispatches one instruction (spec §6's opcode table),
// returning (advance, suspended, err). advance tells the caller whether to
// increment frame.IP (false for jumps/calls/returns, which already set IP
// or replaced the current frame); suspended signals Sleep/Yield.
func (vm *VirtualMachine) executeInstruction(ctx *ExecutionContext, frame *Frame, inst opcodes.Instruction) (bool, bool, error) {
	switch inst.Op {
	case opcodes.OpNop:
		return true, false, nil

	case opcodes.OpPushConst:
		c := frame.Pin.Constants[inst.A]
		frame.push(vm.normalizeConst(ctx, c, frame.Pin))
		return true, false, nil

	case opcodes.OpLoadLocal:
		v := vm.normalize(ctx, frame.Locals[inst.A], frame.Pin)
		frame.Locals[inst.A] = v
		frame.push(v)
		return true, false, nil

	case opcodes.OpStoreLocal:
		v, ok := frame.pop()
		if !ok {
			return false, false, errStackUnderflow("StoreLocal")
		}
		frame.Locals[inst.A] = vm.normalize(ctx, v, frame.Pin)
		return true, false, nil

	case opcodes.OpLoadName:
		name := frame.Pin.Strings[inst.A]
		v, err := vm.loadGlobal(ctx, frame.Pin, name)
		if err != nil {
			return false, false, err
		}
		frame.push(v)
		return true, false, nil

	case opcodes.OpStoreName:
		v, ok := frame.pop()
		if !ok {
			return false, false, errStackUnderflow("StoreName")
		}
		name := frame.Pin.Strings[inst.A]
		vm.storeGlobal(ctx, frame.Pin, name, vm.normalize(ctx, v, frame.Pin))
		return true, false, nil

	case opcodes.OpAdd, opcodes.OpSub, opcodes.OpMul, opcodes.OpDiv:
		return vm.execArithmetic(ctx, frame, inst.Op)

	case opcodes.OpLessThan, opcodes.OpGreaterThan, opcodes.OpEqual, opcodes.OpNotEqual,
		opcodes.OpLessEqual, opcodes.OpGreaterEqual:
		return vm.execComparison(ctx, frame, inst.Op)

	case opcodes.OpJump:
		if int(inst.A) < 0 || int(inst.A) > len(frame.Pin.Functions[frame.FunctionIdx].Code) {
			return false, false, errs.NewRuntime(errs.ErrJumpOutOfRange, "jump target %d out of range", inst.A)
		}
		frame.IP = int(inst.A)
		return false, false, nil

	case opcodes.OpJumpIfFalse:
		v, ok := frame.pop()
		if !ok {
			return false, false, errStackUnderflow("JumpIfFalse")
		}
		if !v.Truthy() {
			if int(inst.A) < 0 || int(inst.A) > len(frame.Pin.Functions[frame.FunctionIdx].Code) {
				return false, false, errs.NewRuntime(errs.ErrJumpOutOfRange, "jump target %d out of range", inst.A)
			}
			frame.IP = int(inst.A)
			return false, false, nil
		}
		frame.IP++
		return false, false, nil

	case opcodes.OpCallHost:
		return vm.execCallHost(ctx, frame, inst)

	case opcodes.OpCallFunc:
		return vm.execCallFunc(ctx, frame, inst)

	case opcodes.OpNewInstance:
		return vm.execNewInstance(ctx, frame, inst)

	case opcodes.OpLoadAttr:
		self, ok := frame.pop()
		if !ok {
			return false, false, errStackUnderflow("LoadAttr")
		}
		v, err := vm.loadAttr(ctx, self, frame.Pin.Strings[inst.A])
		if err != nil {
			return false, false, err
		}
		frame.push(v)
		return true, false, nil

	case opcodes.OpStoreAttr:
		v, ok := frame.pop()
		if !ok {
			return false, false, errStackUnderflow("StoreAttr")
		}
		self, ok := frame.pop()
		if !ok {
			return false, false, errStackUnderflow("StoreAttr")
		}
		if err := vm.storeAttr(ctx, self, frame.Pin.Strings[inst.A], v); err != nil {
			return false, false, err
		}
		frame.push(v)
		return true, false, nil

	case opcodes.OpCallMethod:
		return vm.execCallMethod(ctx, frame, inst)

	case opcodes.OpCallValue:
		return vm.execCallValueOp(ctx, frame, inst)

	case opcodes.OpSpawnFunc:
		return vm.execSpawnFunc(ctx, frame, inst)

	case opcodes.OpAwait:
		return vm.execAwait(ctx, frame)

	case opcodes.OpMakeList:
		return vm.execMakeList(ctx, frame, inst)

	case opcodes.OpMakeDict:
		return vm.execMakeDict(ctx, frame, inst)

	case opcodes.OpSleep:
		v, ok := frame.pop()
		if !ok {
			return false, false, errStackUnderflow("Sleep")
		}
		ctx.WakeTime = timeNowPlusMillis(v.Payload)
		frame.IP++
		return false, true, nil

	case opcodes.OpYield:
		ctx.WakeTime = timeNowPlusMillis(0)
		frame.IP++
		return false, true, nil

	case opcodes.OpReturn:
		v, ok := frame.pop()
		if !ok {
			v = values.Nil
		}
		if err := vm.doReturn(ctx, v); err != nil {
			return false, false, err
		}
		return false, false, nil

	case opcodes.OpPop:
		if _, ok := frame.pop(); !ok {
			return false, false, errStackUnderflow("Pop")
		}
		return true, false, nil

	default:
		return false, false, errs.NewRuntime(errs.ErrTypeMismatch, "unimplemented opcode %s", inst.Op)
	}
}

// doReturn pops the current frame and either delivers its value to the
// caller's operand stack (pushing the constructor instance instead when the
// frame is marked replaceReturnWithInstance, spec §8 invariant 3) or, if it
// was the last frame, sets ctx.ReturnValue.
func (vm *VirtualMachine) doReturn(ctx *ExecutionContext, v values.Value) error {
	frame := ctx.popFrame()
	if frame == nil {
		return errStackUnderflow("Return with no active frame")
	}
	if frame.ReplaceReturnWithInstance {
		v = frame.ConstructorInstance
	}
	caller := ctx.currentFrame()
	if caller == nil {
		ctx.ReturnValue = v
		return nil
	}
	caller.push(v)
	return nil
}
