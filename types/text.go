package types

import (
	"strings"

	"github.com/wudi/gscript/errs"
	"github.com/wudi/gscript/values"
)

// StringObject is a transient dispatch wrapper around the actual string
// content (interned in the runtime string pool and referenced by a
// TagString Value, not a Ref — spec §3). The VM builds one of these on
// demand whenever a String-tagged Value needs method/member dispatch;
// identity is meaningless for it (strings compare by content, spec §4.5),
// so ObjectID is always 0.
type StringObject struct {
	Value string
}

func NewStringObject(s string) *StringObject { return &StringObject{Value: s} }

func (o *StringObject) ObjectID() int64 { return 0 }
func (o *StringObject) Type() *Type     { return StringType }

var StringType = buildStringType()

func buildStringType() *Type {
	t := NewType("String")

	sizeFn := func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		return values.Int(int64(len(self.(*StringObject).Value))), nil
	}
	t.DefineMethod("size", 0, sizeFn)

	t.DefineMethod("contains", 1, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		needle, err := strArg("String.contains", args[0], rt)
		if err != nil {
			return values.Nil, err
		}
		if strings.Contains(self.(*StringObject).Value, needle) {
			return values.Int(1), nil
		}
		return values.Int(0), nil
	})

	t.DefineMethod("find", 1, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		needle, err := strArg("String.find", args[0], rt)
		if err != nil {
			return values.Nil, err
		}
		return values.Int(int64(strings.Index(self.(*StringObject).Value, needle))), nil
	})

	t.DefineMethod("substr", 2, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		s := self.(*StringObject).Value
		pos, err := intArg("String.substr", args[0])
		if err != nil {
			return values.Nil, err
		}
		n, err := intArg("String.substr", args[1])
		if err != nil {
			return values.Nil, err
		}
		if pos < 0 || pos > int64(len(s)) {
			return values.Nil, errs.NewRuntime(errs.ErrOutOfRange, "String.substr: pos %d out of range", pos)
		}
		end := pos + n
		if end > int64(len(s)) {
			end = int64(len(s))
		}
		return rt.NewString(s[pos:end]), nil
	})

	t.DefineMethod("slice", 2, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		s := self.(*StringObject).Value
		begin, err := intArg("String.slice", args[0])
		if err != nil {
			return values.Nil, err
		}
		end, err := intArg("String.slice", args[1])
		if err != nil {
			return values.Nil, err
		}
		if begin < 0 || end > int64(len(s)) || begin > end {
			return values.Nil, errs.NewRuntime(errs.ErrOutOfRange, "String.slice: [%d:%d] out of range", begin, end)
		}
		return rt.NewString(s[begin:end]), nil
	})

	// split returns a real List of Strings (spec §9, open question 2 —
	// the spec's documented fix for the source's stringified-join bug).
	t.DefineMethod("split", 1, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		delim, err := strArg("String.split", args[0], rt)
		if err != nil {
			return values.Nil, err
		}
		parts := strings.Split(self.(*StringObject).Value, delim)
		elems := make([]values.Value, len(parts))
		for i, p := range parts {
			elems[i] = rt.NewString(p)
		}
		return rt.NewList(elems), nil
	})

	t.DefineMethod("replace", 2, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		from, err := strArg("String.replace", args[0], rt)
		if err != nil {
			return values.Nil, err
		}
		to, err := strArg("String.replace", args[1], rt)
		if err != nil {
			return values.Nil, err
		}
		return rt.NewString(strings.ReplaceAll(self.(*StringObject).Value, from, to)), nil
	})

	t.DefineMethod("upper", 0, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		return rt.NewString(strings.ToUpper(self.(*StringObject).Value)), nil
	})
	t.DefineMethod("lower", 0, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		return rt.NewString(strings.ToLower(self.(*StringObject).Value)), nil
	})
	t.DefineMethod("strip", 0, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		return rt.NewString(strings.TrimSpace(self.(*StringObject).Value)), nil
	})
	t.DefineMethod("startsWith", 1, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		prefix, err := strArg("String.startsWith", args[0], rt)
		if err != nil {
			return values.Nil, err
		}
		if strings.HasPrefix(self.(*StringObject).Value, prefix) {
			return values.Int(1), nil
		}
		return values.Int(0), nil
	})
	t.DefineMethod("endsWith", 1, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		suffix, err := strArg("String.endsWith", args[0], rt)
		if err != nil {
			return values.Nil, err
		}
		if strings.HasSuffix(self.(*StringObject).Value, suffix) {
			return values.Int(1), nil
		}
		return values.Int(0), nil
	})
	t.DefineMethod("at", 1, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		s := self.(*StringObject).Value
		i, err := intArg("String.at", args[0])
		if err != nil {
			return values.Nil, err
		}
		if i < 0 || i >= int64(len(s)) {
			return values.Nil, errs.NewRuntime(errs.ErrOutOfRange, "String.at: index %d out of range", i)
		}
		return rt.NewString(string(s[i])), nil
	})

	t.DefineMember("length", func(self Object) (values.Value, error) {
		return values.Int(int64(len(self.(*StringObject).Value))), nil
	}, nil)

	t.Str = func(self Object, strv ValueStrInvoker) (string, error) {
		return self.(*StringObject).Value, nil
	}
	return t
}

func strArg(name string, v values.Value, rt Runtime) (string, error) {
	s, err := rt.StringOf(v)
	if err != nil {
		return "", errs.NewRuntime(errs.ErrTypeMismatch, "%s expects a string argument", name)
	}
	return s, nil
}
