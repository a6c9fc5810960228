package vm

import (
	"github.com/wudi/gscript/types"
	"github.com/wudi/gscript/values"
)

// objectFor resolves a Value to the types.Object that should receive
// method/member dispatch: a heap Ref resolves directly; a String value
// gets wrapped in a transient StringObject (spec §3: strings dispatch by
// content, not by heap identity). Any other tag has no attribute surface.
func (vm *VirtualMachine) objectFor(ctx *ExecutionContext, v values.Value) (types.Object, error) {
	switch v.Tag {
	case values.TagString:
		s, err := ctx.StringOf(v)
		if err != nil {
			return nil, err
		}
		return types.NewStringObject(s), nil
	case values.TagRef:
		obj, ok := ctx.Heap[v.Payload]
		if !ok {
			return nil, errNilReference("dangling reference %d", v.Payload)
		}
		return obj, nil
	default:
		return nil, errUnknownMember("%s values have no methods or members", v.Tag)
	}
}

func (vm *VirtualMachine) strv(ctx *ExecutionContext) types.ValueStrInvoker {
	return func(v values.Value) (string, error) { return vm.stringify(ctx, v) }
}

func (vm *VirtualMachine) stringifyScriptInstance(ctx *ExecutionContext, si *types.ScriptInstanceObject) (string, error) {
	if funcIdx, ok := resolveMethod(si.Pin, si.ClassIndex, "__str__"); ok {
		selfRef := values.Ref(si.ObjectID())
		ret, err := vm.callAndRun(ctx, si.Pin, funcIdx, []values.Value{selfRef})
		if err != nil {
			return "", err
		}
		return vm.stringify(ctx, ret)
	}
	return types.ScriptInstanceType.Stringify(si, vm.strv(ctx))
}

// resolveModuleExport implements a module's lazy-materialization export
// lookup (spec §3, §4.5, §6). A runtime global set by __module_init__'s
// StoreName (ctx.globals[mod.Pin]) always wins over mod.Resolve's
// compile-time fallback, since a global's value can change across the
// module's lifetime and must never be cached into mod.Exports the way a
// function or class safely is.
func (vm *VirtualMachine) resolveModuleExport(ctx *ExecutionContext, mod *types.ModuleObject, name string) (values.Value, bool) {
	if g, ok := ctx.globals[mod.Pin]; ok {
		if v, ok := g[name]; ok {
			return vm.normalize(ctx, v, mod.Pin), true
		}
	}
	v, found := mod.Resolve(name)
	if !found {
		return values.Nil, false
	}
	return vm.normalize(ctx, v, mod.Pin), true
}

// callMethod implements the CallMethod opcode's three-step dispatch order
// (spec §4.5): Module exports/lazy-materialization, ScriptInstance
// field-or-method, then the generic Type dispatcher. It may push a new
// frame (ScriptInstance method call, frame-based) or return a value
// directly (every built-in Type method is synchronous).
//
// pushed reports whether a new frame was pushed (the caller must not treat
// the returned Value as final in that case — it resumes via Return).
func (vm *VirtualMachine) callMethod(ctx *ExecutionContext, self values.Value, name string, args []values.Value) (result values.Value, pushed bool, err error) {
	if self.IsRef() {
		if mod, ok := ctx.Heap[self.Payload].(*types.ModuleObject); ok {
			v, found := vm.resolveModuleExport(ctx, mod, name)
			if !found {
				return values.Nil, false, errUnknownMember("module %s has no export %q", mod.Name, name)
			}
			return v, false, nil
		}
		if si, ok := ctx.Heap[self.Payload].(*types.ScriptInstanceObject); ok {
			if fv, ok := si.Fields[name]; ok && (fv.IsFunction() || fv.IsRef()) {
				callable := vm.normalize(ctx, fv, si.Pin)
				return vm.callValue(ctx, callable, args)
			}
			if funcIdx, ok := resolveMethod(si.Pin, si.ClassIndex, name); ok {
				callArgs := make([]values.Value, 0, len(args)+1)
				callArgs = append(callArgs, self)
				callArgs = append(callArgs, args...)
				pushCallFrame(ctx, si.Pin, funcIdx, callArgs)
				return values.Nil, true, nil
			}
			v, err := types.ScriptInstanceType.CallMethod(si, name, args, ctx)
			return v, false, err
		}
	}
	obj, err := vm.objectFor(ctx, self)
	if err != nil {
		return values.Nil, false, err
	}
	v, err := obj.Type().CallMethod(obj, name, args, ctx)
	return v, false, err
}

// callValue implements CallValue's "callable may be a Function ref ... OR a
// Class ref" dispatch (spec §4.5). pushed mirrors callMethod's contract.
func (vm *VirtualMachine) callValue(ctx *ExecutionContext, callable values.Value, args []values.Value) (values.Value, bool, error) {
	callable = vm.normalizeIfUntagged(ctx, callable)
	if !callable.IsRef() {
		return values.Nil, false, errNotCallable("value of type %s is not callable", callable.Tag)
	}
	switch obj := ctx.Heap[callable.Payload].(type) {
	case *types.FunctionObject:
		pushCallFrame(ctx, obj.Pin, obj.FunctionIndex, args)
		return values.Nil, true, nil
	case *types.LambdaObject:
		frame := pushCallFrame(ctx, obj.Pin, obj.FunctionIndex, args)
		frame.Captures = obj.Captures
		return values.Nil, true, nil
	case *types.ClassObject:
		v, err := vm.newInstance(ctx, obj.Pin, obj.ClassIndex, args)
		return v, err == nil, err
	case *types.NativeFunctionObject:
		v, err := obj.Callback(args, ctx)
		return v, false, err
	default:
		return values.Nil, false, errNotCallable("%s is not callable", obj.Type().Name)
	}
}

// normalizeIfUntagged is callValue's guard for a Value that still carries a
// compile-time Function/Class tag (e.g. loaded straight off a local that
// was never separately normalized).
func (vm *VirtualMachine) normalizeIfUntagged(ctx *ExecutionContext, v values.Value) values.Value {
	if v.IsFunction() || v.IsClass() || v.IsModule() {
		if frame := ctx.currentFrame(); frame != nil {
			return vm.normalize(ctx, v, frame.Pin)
		}
	}
	return v
}

// loadAttr implements the LoadAttr opcode (spec §4.5).
func (vm *VirtualMachine) loadAttr(ctx *ExecutionContext, self values.Value, name string) (values.Value, error) {
	if self.IsRef() {
		if si, ok := ctx.Heap[self.Payload].(*types.ScriptInstanceObject); ok {
			return si.GetField(name)
		}
		if mod, ok := ctx.Heap[self.Payload].(*types.ModuleObject); ok {
			v, found := vm.resolveModuleExport(ctx, mod, name)
			if !found {
				return values.Nil, errUnknownMember("module %s has no export %q", mod.Name, name)
			}
			return v, nil
		}
	}
	obj, err := vm.objectFor(ctx, self)
	if err != nil {
		return values.Nil, err
	}
	return obj.Type().GetMember(obj, name)
}

// storeAttr implements the StoreAttr opcode (spec §4.5).
func (vm *VirtualMachine) storeAttr(ctx *ExecutionContext, self values.Value, name string, v values.Value) error {
	if frame := ctx.currentFrame(); frame != nil {
		v = vm.normalize(ctx, v, frame.Pin)
	}
	if self.IsRef() {
		if si, ok := ctx.Heap[self.Payload].(*types.ScriptInstanceObject); ok {
			si.SetField(name, v)
			return nil
		}
	}
	obj, err := vm.objectFor(ctx, self)
	if err != nil {
		return err
	}
	return obj.Type().SetMember(obj, name, v)
}
