// Package values defines Value, the tagged discriminator that flows
// through every stage of the VM (spec §3).
package values

// Tag discriminates the payload carried by a Value.
type Tag byte

const (
	TagNil Tag = iota
	TagInt
	TagString // payload is an index into the current string pool
	TagRef    // payload is a heap object id
	TagFunction
	TagClass
	TagModule
)

func (t Tag) String() string {
	switch t {
	case TagNil:
		return "nil"
	case TagInt:
		return "int"
	case TagString:
		return "string"
	case TagRef:
		return "ref"
	case TagFunction:
		return "function"
	case TagClass:
		return "class"
	case TagModule:
		return "module"
	default:
		return "unknown"
	}
}

// Value is a tagged 64-bit payload (spec §3): Int carries the integer
// directly; String carries a string-pool index; Ref carries a heap object
// id; Function/Class/Module carry compile-time indices into their owning
// Module until the VM normalizes them into heap Refs on first observation.
type Value struct {
	Tag     Tag
	Payload int64
}

var Nil = Value{Tag: TagNil}

func Int(v int64) Value    { return Value{Tag: TagInt, Payload: v} }
func StringIdx(i int64) Value { return Value{Tag: TagString, Payload: i} }
func Ref(id int64) Value   { return Value{Tag: TagRef, Payload: id} }
func FunctionIdx(i int64) Value { return Value{Tag: TagFunction, Payload: i} }
func ClassIdx(i int64) Value    { return Value{Tag: TagClass, Payload: i} }
func ModuleIdx(i int64) Value   { return Value{Tag: TagModule, Payload: i} }

func (v Value) IsNil() bool      { return v.Tag == TagNil }
func (v Value) IsInt() bool      { return v.Tag == TagInt }
func (v Value) IsString() bool   { return v.Tag == TagString }
func (v Value) IsRef() bool      { return v.Tag == TagRef }
func (v Value) IsFunction() bool { return v.Tag == TagFunction }
func (v Value) IsClass() bool    { return v.Tag == TagClass }
func (v Value) IsModule() bool   { return v.Tag == TagModule }

// Truthy implements the VM's falsy rule for JumpIfFalse (spec §4.5):
// falsy is Int 0; every other value, including Nil, is truthy in the
// source's actual behavior (only Int 0 is rejected as a conditional
// elsewhere would be a redesign the spec explicitly declines to make).
func (v Value) Truthy() bool {
	return !(v.Tag == TagInt && v.Payload == 0)
}

// IdentityEqual implements `==`/`!=` payload semantics for non-String,
// non-Ref tags (spec §4.5): same tag and same payload.
func (v Value) IdentityEqual(other Value) bool {
	return v.Tag == other.Tag && v.Payload == other.Payload
}
