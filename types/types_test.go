package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wudi/gscript/bytecode"
	"github.com/wudi/gscript/values"
)

func testModuleWithFunction(name string) *bytecode.Module {
	m := &bytecode.Module{
		Functions: []bytecode.FunctionBytecode{{Name: name}},
	}
	m.BuildIndex()
	return m
}

type fakeRuntime struct {
	strings []string
	nextID  int64
}

func (r *fakeRuntime) NewString(s string) values.Value {
	r.strings = append(r.strings, s)
	return values.StringIdx(int64(len(r.strings) - 1))
}

func (r *fakeRuntime) Stringify(v values.Value) (string, error) {
	return "", nil
}

func (r *fakeRuntime) StringOf(v values.Value) (string, error) {
	if !v.IsString() {
		return "", assert.AnError
	}
	return r.strings[v.Payload], nil
}

func (r *fakeRuntime) NewList(elements []values.Value) values.Value {
	r.nextID++
	_ = NewListObject(r.nextID, elements)
	return values.Ref(r.nextID)
}

func (r *fakeRuntime) NewDict() values.Value {
	r.nextID++
	return values.Ref(r.nextID)
}

func (r *fakeRuntime) NewTuple(elements []values.Value) values.Value {
	r.nextID++
	return values.Ref(r.nextID)
}

func (r *fakeRuntime) str(v values.Value) string {
	s, _ := r.StringOf(v)
	return s
}

func TestListGetOutOfRangeReturnsNil(t *testing.T) {
	rt := &fakeRuntime{}
	l := NewListObject(1, []values.Value{values.Int(10), values.Int(20)})
	v, err := ListType.CallMethod(l, "get", []values.Value{values.Int(5)}, rt)
	require.NoError(t, err)
	assert.True(t, v.IsNil())
}

func TestListSetOutOfRangeIsError(t *testing.T) {
	rt := &fakeRuntime{}
	l := NewListObject(1, []values.Value{values.Int(10)})
	_, err := ListType.CallMethod(l, "set", []values.Value{values.Int(5), values.Int(1)}, rt)
	assert.Error(t, err)
}

func TestListPushSize(t *testing.T) {
	rt := &fakeRuntime{}
	l := NewListObject(1, nil)
	_, err := ListType.CallMethod(l, "push", []values.Value{values.Int(7)}, rt)
	require.NoError(t, err)
	sz, err := ListType.CallMethod(l, "size", nil, rt)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sz.Payload)
}

func TestDictSetGetDel(t *testing.T) {
	rt := &fakeRuntime{}
	d := NewDictObject(1)
	_, err := DictType.CallMethod(d, "set", []values.Value{values.Int(3), values.Int(99)}, rt)
	require.NoError(t, err)
	v, err := DictType.CallMethod(d, "get", []values.Value{values.Int(3)}, rt)
	require.NoError(t, err)
	assert.Equal(t, int64(99), v.Payload)

	v, err = DictType.CallMethod(d, "del", []values.Value{values.Int(3)}, rt)
	require.NoError(t, err)
	assert.Equal(t, int64(99), v.Payload)

	v, err = DictType.CallMethod(d, "get", []values.Value{values.Int(3)}, rt)
	require.NoError(t, err)
	assert.True(t, v.IsNil())
}

func TestDictKeyAtOutOfRangeIsError(t *testing.T) {
	rt := &fakeRuntime{}
	d := NewDictObject(1)
	_, err := DictType.CallMethod(d, "key_at", []values.Value{values.Int(0)}, rt)
	assert.Error(t, err)
}

func TestStringFindMissingReturnsNegativeOne(t *testing.T) {
	rt := &fakeRuntime{}
	s := NewStringObject("hello world")
	needle := rt.NewString("xyz")
	v, err := StringType.CallMethod(s, "find", []values.Value{needle}, rt)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), v.Payload)
}

func TestStringSplitReturnsListNotJoinedString(t *testing.T) {
	rt := &fakeRuntime{}
	s := NewStringObject("a,b,c")
	delim := rt.NewString(",")
	v, err := StringType.CallMethod(s, "split", []values.Value{delim}, rt)
	require.NoError(t, err)
	assert.True(t, v.IsRef())
}

func TestStringSubstrOutOfRangeIsError(t *testing.T) {
	rt := &fakeRuntime{}
	s := NewStringObject("abc")
	_, err := StringType.CallMethod(s, "substr", []values.Value{values.Int(10), values.Int(2)}, rt)
	assert.Error(t, err)
}

func TestTupleSetOutOfRangeIsError(t *testing.T) {
	rt := &fakeRuntime{}
	tp := NewTupleObject(1, []values.Value{values.Int(1), values.Int(2)})
	_, err := TupleType.CallMethod(tp, "set", []values.Value{values.Int(9), values.Int(0)}, rt)
	assert.Error(t, err)
}

func TestModuleResolveLazyMaterializesFunction(t *testing.T) {
	pin := testModuleWithFunction("greet")
	m := NewModuleObject(1, "mod", pin)
	v, ok := m.Resolve("greet")
	require.True(t, ok)
	assert.True(t, v.IsFunction())
	_, cached := m.Exports["greet"]
	assert.True(t, cached)
}
