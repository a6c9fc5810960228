package vm

import (
	"github.com/wudi/gscript/opcodes"
	"github.com/wudi/gscript/types"
)

// execMakeList implements MakeList: the A elements are already on the stack
// in source order (spec §4.5).
func (vm *VirtualMachine) execMakeList(ctx *ExecutionContext, frame *Frame, inst opcodes.Instruction) (bool, bool, error) {
	elements, ok := frame.popN(int(inst.A))
	if !ok {
		return false, false, errStackUnderflow("MakeList")
	}
	frame.push(ctx.NewList(elements))
	return true, false, nil
}

// execMakeDict implements MakeDict: A key/value pairs are on the stack as
// key0, val0, key1, val1, ... Keys are restricted to Int (spec §9, open
// question 1 resolution already recorded in DESIGN.md).
func (vm *VirtualMachine) execMakeDict(ctx *ExecutionContext, frame *Frame, inst opcodes.Instruction) (bool, bool, error) {
	n := int(inst.A)
	kv, ok := frame.popN(2 * n)
	if !ok {
		return false, false, errStackUnderflow("MakeDict")
	}
	dv := ctx.NewDict()
	dict, ok := ctx.Heap[dv.Payload].(*types.DictObject)
	if !ok {
		return false, false, errTypeMismatch("MakeDict: NewDict did not return a DictObject")
	}
	for i := 0; i < n; i++ {
		key := kv[2*i]
		if !key.IsInt() {
			return false, false, errTypeMismatch("dict literal keys must be Int, got %s", key.Tag)
		}
		dict.Put(key.Payload, kv[2*i+1])
	}
	frame.push(dv)
	return true, false, nil
}
