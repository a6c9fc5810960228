package vm

import (
	"strconv"

	"github.com/wudi/gscript/bytecode"
	"github.com/wudi/gscript/types"
	"github.com/wudi/gscript/values"
)

// normalize materializes a compile-time Function/Class/Module tag into a
// heap-backed Ref bound to pin (spec §4.5 "Value normalization"). Any other
// tag passes through unchanged. Called whenever a value leaves the constant
// pool or is loaded from a local/attribute that still carries the
// compile-time tag.
func (vm *VirtualMachine) normalize(ctx *ExecutionContext, v values.Value, pin *bytecode.Module) values.Value {
	switch v.Tag {
	case values.TagFunction:
		id := ctx.admit(func(id int64) types.Object { return types.NewFunctionObject(id, int(v.Payload), pin) })
		return values.Ref(id)
	case values.TagClass:
		cls := pin.Classes[v.Payload]
		id := ctx.admit(func(id int64) types.Object { return types.NewClassObject(id, cls.Name, int(v.Payload), pin) })
		return values.Ref(id)
	case values.TagModule:
		// Module constants carry a ConstModuleName string index, not used
		// directly here; module loading goes through loadModule (host.go),
		// which already returns a normalized Ref. A bare TagModule Value
		// reaching normalize (e.g. round-tripped through bytecode) resolves
		// to an empty cached module object keyed by its own pin.
		id := ctx.admit(func(id int64) types.Object { return types.NewModuleObject(id, pin.Name, pin) })
		return values.Ref(id)
	default:
		return v
	}
}

// normalizeConst resolves a bytecode.Const straight into a runtime Value,
// interning string bodies into ctx's runtime string pool and normalizing
// Function/Class tags into heap Refs in the same step (used by PushConst,
// by NewInstance's attribute-default walk, and by lazy module export
// materialization).
func (vm *VirtualMachine) normalizeConst(ctx *ExecutionContext, c bytecode.Const, pin *bytecode.Module) values.Value {
	switch c.Kind {
	case bytecode.ConstNil:
		return values.Nil
	case bytecode.ConstInt:
		return values.Int(c.Int)
	case bytecode.ConstString:
		return ctx.NewString(c.Str)
	case bytecode.ConstFunctionIdx:
		return vm.normalize(ctx, values.FunctionIdx(c.Int), pin)
	case bytecode.ConstClassIdx:
		return vm.normalize(ctx, values.ClassIdx(c.Int), pin)
	default:
		return values.Nil
	}
}

// stringify implements the VM's ValueStrInvoker, with [Circular] recursion
// protection over currently-stringifying object ids (spec §4.6, §8
// invariant 6).
func (vm *VirtualMachine) stringify(ctx *ExecutionContext, v values.Value) (string, error) {
	switch v.Tag {
	case values.TagNil:
		return "nil", nil
	case values.TagInt:
		return strconv.FormatInt(v.Payload, 10), nil
	case values.TagString:
		return ctx.StringOf(v)
	case values.TagRef:
		obj, ok := ctx.Heap[v.Payload]
		if !ok {
			return "", errNilReference("dangling reference %d", v.Payload)
		}
		id := obj.ObjectID()
		if id != 0 {
			if ctx.stringifying[id] {
				return "[Circular]", nil
			}
			ctx.stringifying[id] = true
			defer delete(ctx.stringifying, id)
		}
		if si, ok := obj.(*types.ScriptInstanceObject); ok {
			return vm.stringifyScriptInstance(ctx, si)
		}
		return obj.Type().Stringify(obj, func(inner values.Value) (string, error) { return vm.stringify(ctx, inner) })
	default:
		return v.Tag.String(), nil
	}
}
