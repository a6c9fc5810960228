package host

import (
	"errors"
	"strings"
	"testing"

	"github.com/wudi/gscript/errs"
	"github.com/wudi/gscript/types"
	"github.com/wudi/gscript/values"
	"github.com/wudi/gscript/vm"
)

// fakeHostContext is a minimal, dependency-free vm.HostContext double so the
// global host functions can be tested without driving a full VirtualMachine.
type fakeHostContext struct {
	strings   []string
	printed   []string
	objects   map[int64]any
	nextID    int64
	modules   map[string]values.Value
	gcSwept   int
	gcEnabled bool
}

func newFakeHostContext() *fakeHostContext {
	return &fakeHostContext{
		objects: make(map[int64]any),
		modules: make(map[string]values.Value),
	}
}

func (f *fakeHostContext) NewString(s string) values.Value {
	f.strings = append(f.strings, s)
	return values.StringIdx(int64(len(f.strings) - 1))
}

func (f *fakeHostContext) Stringify(v values.Value) (string, error) {
	switch {
	case v.IsNil():
		return "nil", nil
	case v.IsInt():
		return strings.TrimSpace(itoa(v.Payload)), nil
	case v.IsString():
		return f.StringOf(v)
	case v.IsRef():
		if obj, ok := f.objects[v.Payload]; ok {
			if s, ok := obj.(string); ok {
				return s, nil
			}
		}
		return "<object>", nil
	default:
		return "", errors.New("unstringifiable value")
	}
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf []byte
	for n > 0 {
		buf = append([]byte{byte('0' + n%10)}, buf...)
		n /= 10
	}
	if neg {
		buf = append([]byte{'-'}, buf...)
	}
	return string(buf)
}

func (f *fakeHostContext) StringOf(v values.Value) (string, error) {
	if !v.IsString() {
		return "", errs.NewRuntime(errs.ErrTypeMismatch, "expected a String value")
	}
	return f.strings[v.Payload], nil
}

func (f *fakeHostContext) NewList(elements []values.Value) values.Value { return f.admit(elements) }

func (f *fakeHostContext) NewDict() values.Value { return f.admit(map[string]values.Value{}) }

func (f *fakeHostContext) NewTuple(elements []values.Value) values.Value { return f.admit(elements) }

func (f *fakeHostContext) NewObject(mk func(id int64) types.Object) values.Value {
	f.nextID++
	obj := mk(f.nextID)
	f.objects[f.nextID] = obj
	return values.Ref(f.nextID)
}

func (f *fakeHostContext) admit(v any) values.Value {
	f.nextID++
	f.objects[f.nextID] = v
	return values.Ref(f.nextID)
}

func (f *fakeHostContext) GetObject(v values.Value) (any, error) {
	if !v.IsRef() {
		return nil, errs.NewRuntime(errs.ErrTypeMismatch, "expected a Ref value")
	}
	obj, ok := f.objects[v.Payload]
	if !ok {
		return nil, errs.NewRuntime(errs.ErrNilReference, "dangling reference")
	}
	return obj, nil
}

func (f *fakeHostContext) TypeName(v values.Value) string {
	switch {
	case v.IsNil():
		return "Nil"
	case v.IsInt():
		return "Int"
	case v.IsString():
		return "String"
	case v.IsRef():
		return "Object"
	default:
		return "Unknown"
	}
}

func (f *fakeHostContext) ObjectID(v values.Value) (int64, error) {
	if !v.IsRef() {
		return 0, errs.NewRuntime(errs.ErrTypeMismatch, "expected a Ref value")
	}
	return v.Payload, nil
}

func (f *fakeHostContext) Print(s string) { f.printed = append(f.printed, s) }

func (f *fakeHostContext) LoadModule(name string) (values.Value, error) {
	if v, ok := f.modules[name]; ok {
		return v, nil
	}
	return values.Nil, errs.NewRuntime(errs.ErrModuleNotFound, "module %q not found", name)
}

func (f *fakeHostContext) CollectGarbage() (int, bool) {
	if !f.gcEnabled {
		return 0, false
	}
	return f.gcSwept, true
}

func TestHostPrintAddsScriptPrefixAndNewline(t *testing.T) {
	hc := newFakeHostContext()
	v, err := hostPrint(hc, []values.Value{values.Int(42)})
	if err != nil {
		t.Fatalf("hostPrint: %v", err)
	}
	if v != values.Nil {
		t.Fatalf("hostPrint return = %v, want Nil", v)
	}
	if len(hc.printed) != 1 || hc.printed[0] != "[script] 42\n" {
		t.Fatalf("printed = %q, want [\"[script] 42\\n\"]", hc.printed)
	}
}

func TestHostPrintJoinsMultipleArgsWithComma(t *testing.T) {
	hc := newFakeHostContext()
	if _, err := hostPrint(hc, []values.Value{values.Int(1), values.Int(2)}); err != nil {
		t.Fatalf("hostPrint: %v", err)
	}
	if hc.printed[0] != "[script] 1, 2\n" {
		t.Fatalf("printed = %q", hc.printed[0])
	}
}

func TestHostPrintfHasNoPrefixOrNewline(t *testing.T) {
	hc := newFakeHostContext()
	if _, err := hostPrintf(hc, []values.Value{values.Int(7)}); err != nil {
		t.Fatalf("hostPrintf: %v", err)
	}
	if hc.printed[0] != "7" {
		t.Fatalf("printed = %q, want \"7\"", hc.printed[0])
	}
}

func TestHostStrStringifiesValue(t *testing.T) {
	hc := newFakeHostContext()
	v, err := hostStr(hc, []values.Value{values.Int(99)})
	if err != nil {
		t.Fatalf("hostStr: %v", err)
	}
	s, err := hc.StringOf(v)
	if err != nil {
		t.Fatalf("StringOf: %v", err)
	}
	if s != "99" {
		t.Fatalf("str(99) = %q, want \"99\"", s)
	}
}

func TestHostTypeReportsTypeName(t *testing.T) {
	hc := newFakeHostContext()
	v, err := hostType(hc, []values.Value{values.Int(1)})
	if err != nil {
		t.Fatalf("hostType: %v", err)
	}
	s, _ := hc.StringOf(v)
	if s != "Int" {
		t.Fatalf("type(1) = %q, want \"Int\"", s)
	}
}

func TestHostIDReturnsObjectPayload(t *testing.T) {
	hc := newFakeHostContext()
	ref := hc.admit("payload")
	v, err := hostID(hc, []values.Value{ref})
	if err != nil {
		t.Fatalf("hostID: %v", err)
	}
	if v != values.Int(ref.Payload) {
		t.Fatalf("id(ref) = %v, want Int(%d)", v, ref.Payload)
	}
}

func TestHostIDOnNonRefIsTypeMismatch(t *testing.T) {
	hc := newFakeHostContext()
	_, err := hostID(hc, []values.Value{values.Int(5)})
	if !errors.Is(err, errs.ErrTypeMismatch) {
		t.Fatalf("id(5) err = %v, want ErrTypeMismatch", err)
	}
}

func TestHostLoadModuleWithNoExportsReturnsModuleRef(t *testing.T) {
	hc := newFakeHostContext()
	modRef := hc.admit(types.NewModuleObject(1, "m", nil))
	hc.modules["m"] = modRef
	name := hc.NewString("m")

	v, err := hostLoadModule(hc, []values.Value{name})
	if err != nil {
		t.Fatalf("hostLoadModule: %v", err)
	}
	if v != modRef {
		t.Fatalf("loadModule(\"m\") = %v, want %v", v, modRef)
	}
}

func TestHostLoadModuleUnknownNameIsModuleNotFound(t *testing.T) {
	hc := newFakeHostContext()
	name := hc.NewString("missing")
	_, err := hostLoadModule(hc, []values.Value{name})
	if !errors.Is(err, errs.ErrModuleNotFound) {
		t.Fatalf("loadModule(\"missing\") err = %v, want ErrModuleNotFound", err)
	}
}

func TestHostSystemGCNoOpWhenDisabled(t *testing.T) {
	hc := newFakeHostContext()
	v, err := hostSystemGC(hc, nil)
	if err != nil {
		t.Fatalf("hostSystemGC: %v", err)
	}
	if v != values.Int(0) {
		t.Fatalf("system.gc() = %v, want Int(0)", v)
	}
	if len(hc.printed) != 0 {
		t.Fatalf("system.gc() printed %v, want nothing when GC is disabled", hc.printed)
	}
}

func TestHostSystemGCReportsSweptCount(t *testing.T) {
	hc := newFakeHostContext()
	hc.gcEnabled = true
	hc.gcSwept = 12
	v, err := hostSystemGC(hc, nil)
	if err != nil {
		t.Fatalf("hostSystemGC: %v", err)
	}
	if v != values.Int(12) {
		t.Fatalf("system.gc() = %v, want Int(12)", v)
	}
	if len(hc.printed) != 1 {
		t.Fatalf("expected one printed line, got %v", hc.printed)
	}
}

var _ vm.HostContext = (*fakeHostContext)(nil)
