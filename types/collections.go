package types

import (
	"strconv"

	"github.com/wudi/gscript/errs"
	"github.com/wudi/gscript/values"
)

func intArg(name string, v values.Value) (int64, error) {
	if !v.IsInt() {
		return 0, errs.NewRuntime(errs.ErrTypeMismatch, "%s expects an int argument", name)
	}
	return v.Payload, nil
}

// ---- List ----

type ListObject struct {
	id       int64
	Elements []values.Value
}

func NewListObject(id int64, elements []values.Value) *ListObject {
	return &ListObject{id: id, Elements: elements}
}

func (o *ListObject) ObjectID() int64 { return o.id }
func (o *ListObject) Type() *Type     { return ListType }

var ListType = buildListType()

func buildListType() *Type {
	t := NewType("List")
	t.DefineMethod("push", 1, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		l := self.(*ListObject)
		l.Elements = append(l.Elements, args[0])
		return values.Int(int64(len(l.Elements))), nil
	})
	t.DefineMethod("get", 1, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		l := self.(*ListObject)
		i, err := intArg("List.get", args[0])
		if err != nil {
			return values.Nil, err
		}
		if i < 0 || i >= int64(len(l.Elements)) {
			return values.Nil, nil
		}
		return l.Elements[i], nil
	})
	t.DefineMethod("set", 2, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		l := self.(*ListObject)
		i, err := intArg("List.set", args[0])
		if err != nil {
			return values.Nil, err
		}
		if i < 0 || i >= int64(len(l.Elements)) {
			return values.Nil, errs.NewRuntime(errs.ErrOutOfRange, "List.set: index %d out of range (size %d)", i, len(l.Elements))
		}
		l.Elements[i] = args[1]
		return args[1], nil
	})
	t.DefineMethod("remove", 1, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		l := self.(*ListObject)
		i, err := intArg("List.remove", args[0])
		if err != nil {
			return values.Nil, err
		}
		if i < 0 || i >= int64(len(l.Elements)) {
			return values.Nil, nil
		}
		v := l.Elements[i]
		l.Elements = append(l.Elements[:i], l.Elements[i+1:]...)
		return v, nil
	})
	t.DefineMethod("size", 0, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		return values.Int(int64(len(self.(*ListObject).Elements))), nil
	})
	t.DefineMember("length", func(self Object) (values.Value, error) {
		return values.Int(int64(len(self.(*ListObject).Elements))), nil
	}, nil)
	t.Str = func(self Object, strv ValueStrInvoker) (string, error) {
		l := self.(*ListObject)
		out := "["
		for i, v := range l.Elements {
			if i > 0 {
				out += ", "
			}
			s, err := strv(v)
			if err != nil {
				return "", err
			}
			out += s
		}
		return out + "]", nil
	}
	return t
}

// ---- Dict ----
//
// Keys are restricted to Int payloads (spec §9, open question 1): the
// source's working implementation indexes MakeDict/get/set/del by int
// despite the header declaring Value keys, and this module follows the
// implementation rather than the header.

type dictEntry struct {
	key int64
	val values.Value
}

type DictObject struct {
	id      int64
	entries []dictEntry
	index   map[int64]int // key -> position in entries
}

func NewDictObject(id int64) *DictObject {
	return &DictObject{id: id, index: make(map[int64]int)}
}

func (o *DictObject) ObjectID() int64 { return o.id }
func (o *DictObject) Type() *Type     { return DictType }

func (o *DictObject) Put(key int64, v values.Value) {
	if i, ok := o.index[key]; ok {
		o.entries[i].val = v
		return
	}
	o.index[key] = len(o.entries)
	o.entries = append(o.entries, dictEntry{key: key, val: v})
}

var DictType = buildDictType()

func buildDictType() *Type {
	t := NewType("Dict")
	t.DefineMethod("set", 2, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		d := self.(*DictObject)
		k, err := intArg("Dict.set", args[0])
		if err != nil {
			return values.Nil, err
		}
		d.Put(k, args[1])
		return args[1], nil
	})
	t.DefineMethod("get", 1, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		d := self.(*DictObject)
		k, err := intArg("Dict.get", args[0])
		if err != nil {
			return values.Nil, err
		}
		if i, ok := d.index[k]; ok {
			return d.entries[i].val, nil
		}
		return values.Nil, nil
	})
	t.DefineMethod("del", 1, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		d := self.(*DictObject)
		k, err := intArg("Dict.del", args[0])
		if err != nil {
			return values.Nil, err
		}
		i, ok := d.index[k]
		if !ok {
			return values.Nil, nil
		}
		v := d.entries[i].val
		d.entries = append(d.entries[:i], d.entries[i+1:]...)
		delete(d.index, k)
		for key, pos := range d.index {
			if pos > i {
				d.index[key] = pos - 1
			}
		}
		return v, nil
	})
	t.DefineMethod("size", 0, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		return values.Int(int64(len(self.(*DictObject).entries))), nil
	})
	t.DefineMethod("key_at", 1, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		d := self.(*DictObject)
		i, err := intArg("Dict.key_at", args[0])
		if err != nil {
			return values.Nil, err
		}
		if i < 0 || i >= int64(len(d.entries)) {
			return values.Nil, errs.NewRuntime(errs.ErrOutOfRange, "Dict.key_at: index %d out of range", i)
		}
		return values.Int(d.entries[i].key), nil
	})
	t.DefineMethod("value_at", 1, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		d := self.(*DictObject)
		i, err := intArg("Dict.value_at", args[0])
		if err != nil {
			return values.Nil, err
		}
		if i < 0 || i >= int64(len(d.entries)) {
			return values.Nil, errs.NewRuntime(errs.ErrOutOfRange, "Dict.value_at: index %d out of range", i)
		}
		return d.entries[i].val, nil
	})
	t.DefineMember("length", func(self Object) (values.Value, error) {
		return values.Int(int64(len(self.(*DictObject).entries))), nil
	}, nil)
	t.Str = func(self Object, strv ValueStrInvoker) (string, error) {
		d := self.(*DictObject)
		out := "{"
		for i, e := range d.entries {
			if i > 0 {
				out += ", "
			}
			s, err := strv(e.val)
			if err != nil {
				return "", err
			}
			out += strconv.FormatInt(e.key, 10) + ": " + s
		}
		return out + "}", nil
	}
	return t
}

// ---- Tuple ----

type TupleObject struct {
	id       int64
	Elements []values.Value
}

func NewTupleObject(id int64, elements []values.Value) *TupleObject {
	return &TupleObject{id: id, Elements: elements}
}

func (o *TupleObject) ObjectID() int64 { return o.id }
func (o *TupleObject) Type() *Type     { return TupleType }

var TupleType = buildTupleType()

func buildTupleType() *Type {
	t := NewType("Tuple")
	t.DefineMethod("get", 1, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		tp := self.(*TupleObject)
		i, err := intArg("Tuple.get", args[0])
		if err != nil {
			return values.Nil, err
		}
		if i < 0 || i >= int64(len(tp.Elements)) {
			return values.Nil, nil
		}
		return tp.Elements[i], nil
	})
	t.DefineMethod("set", 2, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		tp := self.(*TupleObject)
		i, err := intArg("Tuple.set", args[0])
		if err != nil {
			return values.Nil, err
		}
		if i < 0 || i >= int64(len(tp.Elements)) {
			return values.Nil, errs.NewRuntime(errs.ErrOutOfRange, "Tuple.set: index %d out of range (fixed size %d)", i, len(tp.Elements))
		}
		tp.Elements[i] = args[1]
		return args[1], nil
	})
	t.DefineMethod("size", 0, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		return values.Int(int64(len(self.(*TupleObject).Elements))), nil
	})
	t.DefineMember("length", func(self Object) (values.Value, error) {
		return values.Int(int64(len(self.(*TupleObject).Elements))), nil
	}, nil)
	return t
}
