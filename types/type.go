// Package types implements the uniform Type/Object dispatch abstraction
// (spec §4.6): every built-in value and every script-defined class shares
// one dispatch contract — callMethod/getMember/setMember against a
// per-Type attribute table.
package types

import (
	"fmt"

	"github.com/wudi/gscript/errs"
	"github.com/wudi/gscript/values"
)

// Object is any heap-resident (or transient-wrapper, for String — see
// text.go) entity a Value's Ref payload can point to.
type Object interface {
	ObjectID() int64
	Type() *Type
}

// StringFactory allocates a new runtime string and returns its Value,
// handed to built-in methods that need to manufacture strings (spec §4.6)
// without exposing the ExecutionContext.
type StringFactory func(s string) values.Value

// ValueStrInvoker recursively stringifies a Value via its Type's __str__
// hook, with the VM's own [Circular] recursion protection applied.
type ValueStrInvoker func(v values.Value) (string, error)

// Runtime is the narrow ExecutionContext handle built-in methods receive
// (spec §4.6: "so built-in methods never see the ExecutionContext
// directly") — string allocation/stringification plus the heap
// constructors methods like String.split need to manufacture new
// collection values.
type Runtime interface {
	NewString(s string) values.Value
	Stringify(v values.Value) (string, error)
	// StringOf resolves a String-tagged Value to its Go string content via
	// the runtime string pool; it errors for any other tag.
	StringOf(v values.Value) (string, error)
	NewList(elements []values.Value) values.Value
	NewDict() values.Value
	NewTuple(elements []values.Value) values.Value
}

// MethodFunc is the bound implementation behind one method entry.
type MethodFunc func(self Object, args []values.Value, rt Runtime) (values.Value, error)

// Method is one callable attribute-table entry with a declared arity;
// Variadic allows extra trailing args (used by print/printf-like natives).
type Method struct {
	Arity    int
	Variadic bool
	Invoke   MethodFunc
}

// Member is one gettable (and optionally settable) attribute-table entry.
type Member struct {
	Get func(self Object) (values.Value, error)
	Set func(self Object, v values.Value) error // nil => read-only
}

type attrEntry struct {
	isMethod bool
	method   Method
	member   Member
}

// Type is the abstract dispatcher (spec §4.6): a name -> attribute-entry
// table plus a __str__ hook. ScriptInstanceType (objectmodel.go) is the one
// instance shared by every user-defined class, distinguished by classIndex
// rather than by a distinct Go type per class (spec §9: "prefer a single-
// variant dispatcher over deep inheritance").
type Type struct {
	Name  string
	attrs map[string]attrEntry

	// Str implements __str__; nil falls back to a "<Name>" rendering.
	Str func(self Object, strv ValueStrInvoker) (string, error)
}

func NewType(name string) *Type {
	return &Type{Name: name, attrs: make(map[string]attrEntry)}
}

func (t *Type) DefineMethod(name string, arity int, fn MethodFunc) {
	t.attrs[name] = attrEntry{isMethod: true, method: Method{Arity: arity, Invoke: fn}}
}

func (t *Type) DefineVariadicMethod(name string, minArity int, fn MethodFunc) {
	t.attrs[name] = attrEntry{isMethod: true, method: Method{Arity: minArity, Variadic: true, Invoke: fn}}
}

func (t *Type) DefineMember(name string, get func(Object) (values.Value, error), set func(Object, values.Value) error) {
	t.attrs[name] = attrEntry{member: Member{Get: get, Set: set}}
}

// CallMethod resolves and invokes name against self (spec §4.6: "looks up
// the name, checks declared arity, invokes the bound callable").
func (t *Type) CallMethod(self Object, name string, args []values.Value, rt Runtime) (values.Value, error) {
	e, ok := t.attrs[name]
	if !ok || !e.isMethod {
		return values.Nil, errs.NewRuntime(errs.ErrUnknownMember, "%s has no method %q", t.Name, name)
	}
	if e.method.Variadic {
		if len(args) < e.method.Arity {
			return values.Nil, errs.NewRuntime(errs.ErrTypeMismatch, "%s.%s expects at least %d args, got %d", t.Name, name, e.method.Arity, len(args))
		}
	} else if len(args) != e.method.Arity {
		return values.Nil, errs.NewRuntime(errs.ErrTypeMismatch, "%s.%s expects %d args, got %d", t.Name, name, e.method.Arity, len(args))
	}
	return e.method.Invoke(self, args, rt)
}

func (t *Type) GetMember(self Object, name string) (values.Value, error) {
	e, ok := t.attrs[name]
	if !ok || e.isMethod || e.member.Get == nil {
		return values.Nil, errs.NewRuntime(errs.ErrUnknownMember, "%s has no member %q", t.Name, name)
	}
	return e.member.Get(self)
}

func (t *Type) SetMember(self Object, name string, v values.Value) error {
	e, ok := t.attrs[name]
	if !ok || e.isMethod || e.member.Set == nil {
		return errs.NewRuntime(errs.ErrUnknownMember, "%s has no settable member %q", t.Name, name)
	}
	return e.member.Set(self, v)
}

// HasMethod reports whether name resolves to a method, used by the VM's
// CallMethod dispatch order (ScriptInstance field-vs-method precedence).
func (t *Type) HasMethod(name string) bool {
	e, ok := t.attrs[name]
	return ok && e.isMethod
}

// Stringify implements the __str__ hook, falling back to "<Name>" when a
// Type defines none.
func (t *Type) Stringify(self Object, strv ValueStrInvoker) (string, error) {
	if t.Str != nil {
		return t.Str(self, strv)
	}
	return fmt.Sprintf("<%s>", t.Name), nil
}
