package types

import (
	"github.com/wudi/gscript/bytecode"
	"github.com/wudi/gscript/errs"
	"github.com/wudi/gscript/values"
)

// ModuleObject is a loaded module handle (spec §3: "(name, modulePin,
// exports map)"). Exports lazily materialize from Pin's globals/functions/
// classes on first access by name (spec §4.5 CallMethod step 1 / LoadAttr).
type ModuleObject struct {
	id      int64
	Name    string
	Pin     *bytecode.Module
	Exports map[string]values.Value
}

func NewModuleObject(id int64, name string, pin *bytecode.Module) *ModuleObject {
	return &ModuleObject{id: id, Name: name, Pin: pin, Exports: make(map[string]values.Value)}
}

func (o *ModuleObject) ObjectID() int64 { return o.id }
func (o *ModuleObject) Type() *Type     { return ModuleType }

// Resolve looks up name in Exports, then lazily materializes it from the
// module's functions/classes/globals (spec §4.5). The materialized value
// still carries a compile-time Function/Class tag; the VM normalizes it to
// a heap Ref on the caller's next observation, same as any other constant.
func (o *ModuleObject) Resolve(name string) (values.Value, bool) {
	if v, ok := o.Exports[name]; ok {
		return v, true
	}
	if idx, ok := o.Pin.FunctionIndex[name]; ok {
		v := values.FunctionIdx(int64(idx))
		o.Exports[name] = v
		return v, true
	}
	if idx, ok := o.Pin.ClassIndex[name]; ok {
		v := values.ClassIdx(int64(idx))
		o.Exports[name] = v
		return v, true
	}
	for _, g := range o.Pin.Globals {
		if g.Name == name {
			v := constToValue(g.Initial)
			o.Exports[name] = v
			return v, true
		}
	}
	return values.Nil, false
}

func constToValue(c bytecode.Const) values.Value {
	switch c.Kind {
	case bytecode.ConstInt:
		return values.Int(c.Int)
	case bytecode.ConstFunctionIdx:
		return values.FunctionIdx(c.Int)
	case bytecode.ConstClassIdx:
		return values.ClassIdx(c.Int)
	default:
		return values.Nil
	}
}

var ModuleType = buildModuleType()

func buildModuleType() *Type {
	t := NewType("Module")
	t.Str = func(self Object, strv ValueStrInvoker) (string, error) {
		return "<module " + self.(*ModuleObject).Name + ">", nil
	}
	return t
}

// ClassObject is a callable class handle (spec §3: "(className, classIndex,
// modulePin) — calling it invokes the __new__ constructor protocol"). The
// VM, not this Type, implements NewInstance/constructor dispatch; ClassType
// exists so a Class value has somewhere to route __str__ and any future
// reflective member (e.g. a `.name` accessor).
type ClassObject struct {
	id         int64
	Name       string
	ClassIndex int
	Pin        *bytecode.Module
}

func NewClassObject(id int64, name string, classIndex int, pin *bytecode.Module) *ClassObject {
	return &ClassObject{id: id, Name: name, ClassIndex: classIndex, Pin: pin}
}

func (o *ClassObject) ObjectID() int64 { return o.id }
func (o *ClassObject) Type() *Type     { return ClassType }

var ClassType = buildClassType()

func buildClassType() *Type {
	t := NewType("Class")
	t.DefineMember("name", func(self Object) (values.Value, error) {
		return values.Nil, nil // name is a compile-time string; surfaced via __str__ instead
	}, nil)
	t.Str = func(self Object, strv ValueStrInvoker) (string, error) {
		return "<class " + self.(*ClassObject).Name + ">", nil
	}
	return t
}

// ScriptInstanceType is the single dispatcher shared by every user-defined
// class (spec §9: "prefer a single-variant dispatcher over deep
// inheritance... distinguished by classIndex"). Field reads/writes bypass
// this Type entirely and go straight through the instance's own map (spec
// §4.6); only methods and __str__ route through here, and the VM resolves
// those via the class's base-chain walk before ever calling CallMethod —
// so ScriptInstanceType itself carries no method table.
var ScriptInstanceType = buildScriptInstanceType()

func buildScriptInstanceType() *Type {
	t := NewType("ScriptInstance")
	t.Str = func(self Object, strv ValueStrInvoker) (string, error) {
		return "<" + self.(*ScriptInstanceObject).ClassName + " instance>", nil
	}
	return t
}

// ScriptInstanceObject is one allocated instance of a script-defined class
// (spec §3: "(classIndex, className, modulePin, field map)").
type ScriptInstanceObject struct {
	id         int64
	ClassIndex int
	ClassName  string
	Pin        *bytecode.Module
	Fields     map[string]values.Value
}

func NewScriptInstanceObject(id int64, classIndex int, className string, pin *bytecode.Module) *ScriptInstanceObject {
	return &ScriptInstanceObject{id: id, ClassIndex: classIndex, ClassName: className, Pin: pin, Fields: make(map[string]values.Value)}
}

func (o *ScriptInstanceObject) ObjectID() int64 { return o.id }
func (o *ScriptInstanceObject) Type() *Type     { return ScriptInstanceType }

func (o *ScriptInstanceObject) GetField(name string) (values.Value, error) {
	v, ok := o.Fields[name]
	if !ok {
		return values.Nil, errs.NewRuntime(errs.ErrUnknownMember, "%s has no field %q", o.ClassName, name)
	}
	return v, nil
}

func (o *ScriptInstanceObject) SetField(name string, v values.Value) {
	o.Fields[name] = v
}
