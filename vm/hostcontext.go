package vm

import (
	"fmt"

	"github.com/wudi/gscript/values"
)

// Print implements HostContext's output sink: script output goes to ctx.Out
// when the embedding host supplied one, else to stdout. A host that wants
// silence passes a no-op Out explicitly rather than relying on nil.
func (ctx *ExecutionContext) Print(s string) {
	if ctx.Out != nil {
		ctx.Out(s)
		return
	}
	fmt.Print(s)
}

// Stringify completes ExecutionContext's types.Runtime/HostContext surface:
// unlike NewString/StringOf/NewList/NewDict/NewTuple, it needs the owning
// VirtualMachine to invoke a __str__ hook on a ScriptInstance, so it
// delegates to vm.stringify once bind has recorded that owner.
func (ctx *ExecutionContext) Stringify(v values.Value) (string, error) {
	if ctx.ownerVM == nil {
		return "", errTypeMismatch("Stringify: context is not bound to a running VirtualMachine")
	}
	return ctx.ownerVM.stringify(ctx, v)
}

// GetObject resolves a Ref to its heap Object, for a native function that
// needs to inspect a value's concrete representation (spec §4.5's
// HostContext.getObject).
func (ctx *ExecutionContext) GetObject(v values.Value) (any, error) {
	if !v.IsRef() {
		return nil, errTypeMismatch("GetObject: expected a Ref value, got %s", v.Tag)
	}
	obj, ok := ctx.Heap[v.Payload]
	if !ok {
		return nil, errNilReference("dangling reference %d", v.Payload)
	}
	return obj, nil
}

// TypeName reports a value's runtime type name (spec §4.5's typeName()).
func (ctx *ExecutionContext) TypeName(v values.Value) string {
	switch v.Tag {
	case values.TagNil:
		return "Nil"
	case values.TagInt:
		return "Int"
	case values.TagString:
		return "String"
	case values.TagRef:
		if obj, ok := ctx.Heap[v.Payload]; ok {
			return obj.Type().Name
		}
		return "Ref"
	default:
		return v.Tag.String()
	}
}

// ObjectID returns a Ref's heap id (spec §4.5's objectId()); non-Ref values
// have no stable identity.
func (ctx *ExecutionContext) ObjectID(v values.Value) (int64, error) {
	if !v.IsRef() {
		return 0, errTypeMismatch("ObjectID: expected a Ref value, got %s", v.Tag)
	}
	return v.Payload, nil
}

// CollectGarbage runs one mark-sweep pass if the owning VirtualMachine was
// built with Options.EnableGC, for the system.gc() host function. ran is
// false when GC was never enabled, in which case swept is always 0.
func (ctx *ExecutionContext) CollectGarbage() (swept int, ran bool) {
	if ctx.ownerVM == nil || ctx.ownerVM.gc == nil {
		return 0, false
	}
	return ctx.ownerVM.collect(ctx), true
}

// LoadModule resolves (and memoizes) a named module, running its
// __module_init__ on first resolution, for the loadModule host function.
func (ctx *ExecutionContext) LoadModule(name string) (values.Value, error) {
	if ctx.ownerVM == nil {
		return values.Nil, errTypeMismatch("LoadModule: context is not bound to a running VirtualMachine")
	}
	return ctx.ownerVM.loadModule(ctx, name)
}
