package vm

import (
	"github.com/wudi/gscript/errs"
	"github.com/wudi/gscript/opcodes"
	"github.com/wudi/gscript/values"
)

// Calls that push a new frame (CallFunc, NewInstance, and the pushed cases
// of CallMethod/CallValue) advance the CALLING frame's IP themselves before
// handing control to the callee — the callee's eventual Return delivers its
// result onto this (now-paused) frame's stack, and step()'s
// advance-only-if-still-current-frame guard must not also touch it.

// execCallHost implements CallHost: a registered native function invoked
// synchronously with ctx as its HostContext handle (spec §4.5).
func (vm *VirtualMachine) execCallHost(ctx *ExecutionContext, frame *Frame, inst opcodes.Instruction) (bool, bool, error) {
	name := frame.Pin.Strings[inst.A]
	args, ok := frame.popN(int(inst.B))
	if !ok {
		return false, false, errStackUnderflow("CallHost %s", name)
	}
	fn, ok := vm.Natives[name]
	if !ok {
		return false, false, errUnknownMember("no host function registered as %q", name)
	}
	ctx.bind(vm)
	result, err := fn(ctx, args)
	if err != nil {
		return false, false, err
	}
	frame.push(result)
	return true, false, nil
}

// execCallFunc implements CallFunc: a direct call to a function in the same
// module pin (spec §4.5).
func (vm *VirtualMachine) execCallFunc(ctx *ExecutionContext, frame *Frame, inst opcodes.Instruction) (bool, bool, error) {
	args, ok := frame.popN(int(inst.B))
	if !ok {
		return false, false, errStackUnderflow("CallFunc")
	}
	frame.IP++
	pushCallFrame(ctx, frame.Pin, int(inst.A), args)
	return false, false, nil
}

// execNewInstance implements NewInstance (spec §4.5, §8 invariant 3): the
// instance ref is delivered later, when the pushed __new__ frame returns.
func (vm *VirtualMachine) execNewInstance(ctx *ExecutionContext, frame *Frame, inst opcodes.Instruction) (bool, bool, error) {
	args, ok := frame.popN(int(inst.B))
	if !ok {
		return false, false, errStackUnderflow("NewInstance")
	}
	if _, err := vm.newInstance(ctx, frame.Pin, int(inst.A), args); err != nil {
		return false, false, err
	}
	frame.IP++
	return false, false, nil
}

// execCallMethod implements CallMethod (spec §4.5): self then argc args are
// on the stack, in that order; name is a Strings index.
func (vm *VirtualMachine) execCallMethod(ctx *ExecutionContext, frame *Frame, inst opcodes.Instruction) (bool, bool, error) {
	name := frame.Pin.Strings[inst.A]
	args, ok := frame.popN(int(inst.B))
	if !ok {
		return false, false, errStackUnderflow("CallMethod %s", name)
	}
	self, ok := frame.pop()
	if !ok {
		return false, false, errStackUnderflow("CallMethod %s", name)
	}
	result, pushed, err := vm.callMethod(ctx, self, name, args)
	if err != nil {
		return false, false, err
	}
	if pushed {
		frame.IP++
		return false, false, nil
	}
	frame.push(result)
	return true, false, nil
}

// execCallValueOp implements CallValue: the callable then argc args are on
// the stack (spec §4.5).
func (vm *VirtualMachine) execCallValueOp(ctx *ExecutionContext, frame *Frame, inst opcodes.Instruction) (bool, bool, error) {
	args, ok := frame.popN(int(inst.A))
	if !ok {
		return false, false, errStackUnderflow("CallValue")
	}
	callee, ok := frame.pop()
	if !ok {
		return false, false, errStackUnderflow("CallValue")
	}
	result, pushed, err := vm.callValue(ctx, callee, args)
	if err != nil {
		return false, false, err
	}
	if pushed {
		frame.IP++
		return false, false, nil
	}
	frame.push(result)
	return true, false, nil
}

// execSpawnFunc implements SpawnFunc (spec §4.7): the callee runs to
// completion in a fresh ExecutionContext on the scheduler's own goroutine;
// the opcode itself only pushes the resulting task handle.
func (vm *VirtualMachine) execSpawnFunc(ctx *ExecutionContext, frame *Frame, inst opcodes.Instruction) (bool, bool, error) {
	if vm.Scheduler == nil {
		return false, false, errs.NewRuntime(errs.ErrCoroutineDisabled, "spawn requires a Scheduler")
	}
	args, ok := frame.popN(int(inst.B))
	if !ok {
		return false, false, errStackUnderflow("SpawnFunc")
	}
	pin := frame.Pin
	funcIdx := int(inst.A)
	out := ctx.Out
	handle := vm.Scheduler.Spawn(func() (values.Value, error) {
		sub := NewExecutionContext(out)
		fn := pin.Functions[funcIdx]
		return vm.RunFunction(sub, pin, fn.Name, args)
	})
	frame.push(values.Int(handle))
	return true, false, nil
}

// execAwait implements Await (spec §4.7): blocks this goroutine until the
// task handle's sub-VM run completes.
func (vm *VirtualMachine) execAwait(ctx *ExecutionContext, frame *Frame) (bool, bool, error) {
	h, ok := frame.pop()
	if !ok {
		return false, false, errStackUnderflow("Await")
	}
	if vm.Scheduler == nil {
		return false, false, errs.NewRuntime(errs.ErrTaskHandleNotFound, "await requires a Scheduler")
	}
	result, err := vm.Scheduler.Await(h.Payload)
	if err != nil {
		return false, false, err
	}
	frame.push(result)
	return true, false, nil
}
