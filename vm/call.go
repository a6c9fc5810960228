package vm

import (
	"github.com/wudi/gscript/bytecode"
	"github.com/wudi/gscript/errs"
	"github.com/wudi/gscript/types"
	"github.com/wudi/gscript/values"
)

// resolveMethod walks the base-class chain starting at classIdx looking for
// a method bound under name, returning the function index to call (spec
// §4.5 CallMethod step 2, §9 "single-variant dispatcher... distinguished by
// classIndex").
func resolveMethod(pin *bytecode.Module, classIdx int, name string) (int, bool) {
	for classIdx >= 0 {
		cls := pin.Classes[classIdx]
		for _, m := range cls.Methods {
			if m.Name == name {
				return m.FunctionIndex, true
			}
		}
		classIdx = cls.BaseClassIdx
	}
	return 0, false
}

// initFields seeds a new ScriptInstance's field map by walking the class
// chain from root to classIdx (base attributes initialize first, so a
// derived class's own default for the same name wins), normalizing each
// attribute's constant default (spec §3 ScriptInstance invariant).
func (vm *VirtualMachine) initFields(ctx *ExecutionContext, classIdx int, pin *bytecode.Module) map[string]values.Value {
	var chain []int
	for i := classIdx; i >= 0; i = pin.Classes[i].BaseClassIdx {
		chain = append(chain, i)
	}
	fields := make(map[string]values.Value)
	for i := len(chain) - 1; i >= 0; i-- {
		cls := pin.Classes[chain[i]]
		for _, attr := range cls.Attributes {
			fields[attr.Name] = vm.normalizeConst(ctx, attr.Default, pin)
		}
	}
	return fields
}

// deleteHookTarget is one ScriptInstance whose class chain defines
// __delete__, found during the final heap sweep (spec §4.7).
type deleteHookTarget struct {
	self    values.Value
	pin     *bytecode.Module
	funcIdx int
}

func (vm *VirtualMachine) collectDeleteHooks(ctx *ExecutionContext) []deleteHookTarget {
	var out []deleteHookTarget
	for id, obj := range ctx.Heap {
		si, ok := obj.(*types.ScriptInstanceObject)
		if !ok {
			continue
		}
		if funcIdx, ok := resolveMethod(si.Pin, si.ClassIndex, "__delete__"); ok {
			out = append(out, deleteHookTarget{self: values.Ref(id), pin: si.Pin, funcIdx: funcIdx})
		}
	}
	return out
}

// pushCallFrame allocates a new Frame bound to pin for funcIdx, pre-filling
// locals[0:len(args)] with args (spec §3 Frame: "locals[0..params) are
// pre-filled with call arguments").
func pushCallFrame(ctx *ExecutionContext, pin *bytecode.Module, funcIdx int, args []values.Value) *Frame {
	fn := pin.Functions[funcIdx]
	locals := make([]values.Value, fn.LocalCount)
	copy(locals, args)
	frame := &Frame{
		FunctionName: fn.Name,
		FunctionIdx:  funcIdx,
		Pin:          pin,
		Locals:       locals,
	}
	ctx.pushFrame(frame)
	return frame
}

// newInstance implements NewInstance/CallValue-on-a-Class (spec §4.5): it
// allocates the ScriptInstance, seeds its fields, and pushes a frame for
// __new__ marked so that frame's eventual Return discards whatever __new__
// returned and instead resolves to the instance (spec §8 invariant 3).
func (vm *VirtualMachine) newInstance(ctx *ExecutionContext, pin *bytecode.Module, classIdx int, args []values.Value) (values.Value, error) {
	cls := pin.Classes[classIdx]
	fields := vm.initFields(ctx, classIdx, pin)
	var inst *types.ScriptInstanceObject
	instID := ctx.admit(func(id int64) types.Object {
		inst = types.NewScriptInstanceObject(id, classIdx, cls.Name, pin)
		inst.Fields = fields
		return inst
	})
	instRef := values.Ref(instID)

	funcIdx, ok := resolveMethod(pin, classIdx, "__new__")
	if !ok {
		return values.Nil, errs.NewRuntime(errs.ErrMissingConstructor, "class %s has no __new__", cls.Name)
	}

	ctorArgs := make([]values.Value, 0, len(args)+1)
	ctorArgs = append(ctorArgs, instRef)
	ctorArgs = append(ctorArgs, args...)

	frame := pushCallFrame(ctx, pin, funcIdx, ctorArgs)
	frame.ReplaceReturnWithInstance = true
	frame.ConstructorInstance = instRef
	return instRef, nil
}
