package types

import (
	"github.com/wudi/gscript/bytecode"
	"github.com/wudi/gscript/values"
)

// FunctionObject is a compiled function bound to its defining module
// (spec §3: "Function — (functionIndex, modulePin)"; spec §9 glossary
// "Module pin" — a shared-ownership reference guaranteeing the callee's
// bytecode outlives its reachability).
type FunctionObject struct {
	id            int64
	FunctionIndex int
	Pin           *bytecode.Module
}

func NewFunctionObject(id int64, functionIndex int, pin *bytecode.Module) *FunctionObject {
	return &FunctionObject{id: id, FunctionIndex: functionIndex, Pin: pin}
}

func (o *FunctionObject) ObjectID() int64 { return o.id }
func (o *FunctionObject) Type() *Type     { return FunctionType }

var FunctionType = buildCallableType("Function")

// LambdaObject is a Function plus captured UpvalueCells (spec §3, §9:
// "captures reference UpvalueCells, not values").
type LambdaObject struct {
	id            int64
	FunctionIndex int
	Pin           *bytecode.Module
	Captures      []*UpvalueCellObject
}

func NewLambdaObject(id int64, functionIndex int, pin *bytecode.Module, captures []*UpvalueCellObject) *LambdaObject {
	return &LambdaObject{id: id, FunctionIndex: functionIndex, Pin: pin, Captures: captures}
}

func (o *LambdaObject) ObjectID() int64 { return o.id }
func (o *LambdaObject) Type() *Type     { return LambdaType }

var LambdaType = buildCallableType("Lambda")

func buildCallableType(name string) *Type {
	t := NewType(name)
	t.Str = func(self Object, strv ValueStrInvoker) (string, error) {
		return "<" + name + ">", nil
	}
	return t
}

// NativeFunctionObject wraps a host-provided callback (spec §3: "(name,
// callback)"); the callback is expected to be total over valid inputs or
// to raise a RuntimeError.
type NativeFunctionObject struct {
	id       int64
	Name     string
	Callback func(args []values.Value, rt Runtime) (values.Value, error)
}

func NewNativeFunctionObject(id int64, name string, fn func(args []values.Value, rt Runtime) (values.Value, error)) *NativeFunctionObject {
	return &NativeFunctionObject{id: id, Name: name, Callback: fn}
}

func (o *NativeFunctionObject) ObjectID() int64 { return o.id }
func (o *NativeFunctionObject) Type() *Type     { return NativeFunctionType }

var NativeFunctionType = buildNativeFunctionType()

func buildNativeFunctionType() *Type {
	t := NewType("NativeFunction")
	t.Str = func(self Object, strv ValueStrInvoker) (string, error) {
		return "<native " + self.(*NativeFunctionObject).Name + ">", nil
	}
	return t
}

// UpvalueCellObject is the shared mutable box a closure captures instead of
// a bare value (spec §9: "Closures... UpvalueCell is the box strategy").
type UpvalueCellObject struct {
	id    int64
	Value values.Value
}

func NewUpvalueCellObject(id int64, initial values.Value) *UpvalueCellObject {
	return &UpvalueCellObject{id: id, Value: initial}
}

func (o *UpvalueCellObject) ObjectID() int64 { return o.id }
func (o *UpvalueCellObject) Type() *Type     { return UpvalueCellType }

var UpvalueCellType = NewType("UpvalueCell")
