// Package bytecode defines the compiler's output format: a Module of
// constants, strings, compiled functions and classes, and globals
// (spec §3, §6), plus the GSBC1 text serialization.
package bytecode

import "github.com/wudi/gscript/opcodes"

// FunctionBytecode is one compiled function or method body (spec §3).
type FunctionBytecode struct {
	Name         string
	Params       []string
	Code         []opcodes.Instruction
	LocalCount   int
	StackDepth   int // estimated operand-stack depth, for frame preallocation
}

// ClassAttributeBinding is one `name = default` class attribute.
type ClassAttributeBinding struct {
	Name    string
	Default Const
}

// ClassMethodBinding names a method and the function index that backs it.
type ClassMethodBinding struct {
	Name          string
	FunctionIndex int
}

// ClassBytecode is one compiled class descriptor (spec §3).
type ClassBytecode struct {
	Name          string
	BaseClassIdx  int // -1 = root
	Attributes    []ClassAttributeBinding
	Methods       []ClassMethodBinding
}

// GlobalBinding is one module-level `let` binding, compiled at
// __module_init__ time (spec §4.4).
type GlobalBinding struct {
	Name    string
	Initial Const
}

// ConstKind discriminates the constant pool's entry shapes. Unlike
// values.Value (a runtime tag), a Const additionally needs to represent a
// literal string body (not yet interned into any runtime string pool) so
// the module stays self-contained until the VM observes it.
type ConstKind byte

const (
	ConstNil ConstKind = iota
	ConstInt
	ConstString
	ConstFunctionIdx
	ConstClassIdx
	ConstModuleName
)

// Const is one constant-pool entry.
type Const struct {
	Kind ConstKind
	Int  int64
	Str  string
}

func NilConst() Const            { return Const{Kind: ConstNil} }
func IntConst(v int64) Const     { return Const{Kind: ConstInt, Int: v} }
func StringConst(s string) Const { return Const{Kind: ConstString, Str: s} }
func FunctionConst(idx int64) Const { return Const{Kind: ConstFunctionIdx, Int: idx} }
func ClassConst(idx int64) Const    { return Const{Kind: ConstClassIdx, Int: idx} }

// Module is the compiler's immutable output (spec §3). A Module may be
// shared across VMs and across ExecutionContexts via a shared-ownership
// pin; nothing about it is mutated once compilation finishes.
type Module struct {
	Name      string
	Constants []Const
	Strings   []string
	Functions []FunctionBytecode
	Classes   []ClassBytecode
	Globals   []GlobalBinding

	// FunctionIndex/ClassIndex let the VM and host bindings resolve a
	// function or class by name without a linear scan.
	FunctionIndex map[string]int
	ClassIndex    map[string]int
}

// BuildIndex (re)computes FunctionIndex/ClassIndex from Functions/Classes.
// Called by the compiler once the module is fully assembled, and by the
// bytecode deserializer after reading one back from text form.
func (m *Module) BuildIndex() {
	m.FunctionIndex = make(map[string]int, len(m.Functions))
	for i, fn := range m.Functions {
		m.FunctionIndex[fn.Name] = i
	}
	m.ClassIndex = make(map[string]int, len(m.Classes))
	for i, cls := range m.Classes {
		m.ClassIndex[cls.Name] = i
	}
}
