// Package opcodes defines the bytecode instruction set executed by the
// virtual machine (spec §6).
package opcodes

// Opcode is a single bytecode instruction tag.
type Opcode byte

const (
	OpNop Opcode = iota

	// Constants / locals / globals
	OpPushConst
	OpLoadLocal
	OpStoreLocal
	OpLoadName
	OpStoreName

	// Arithmetic
	OpAdd
	OpSub
	OpMul
	OpDiv

	// Comparison
	OpLessThan
	OpGreaterThan
	OpEqual
	OpNotEqual
	OpLessEqual
	OpGreaterEqual

	// Control flow
	OpJump
	OpJumpIfFalse

	// Calls
	OpCallHost
	OpCallFunc
	OpNewInstance
	OpLoadAttr
	OpStoreAttr
	OpCallMethod
	OpCallValue

	// Tasks
	OpSpawnFunc
	OpAwait

	// Aggregates
	OpMakeList
	OpMakeDict

	// Coroutine suspension
	OpSleep
	OpYield

	// Frame control
	OpReturn
	OpPop
)

var names = map[Opcode]string{
	OpNop:          "Nop",
	OpPushConst:    "PushConst",
	OpLoadLocal:    "LoadLocal",
	OpStoreLocal:   "StoreLocal",
	OpLoadName:     "LoadName",
	OpStoreName:    "StoreName",
	OpAdd:          "Add",
	OpSub:          "Sub",
	OpMul:          "Mul",
	OpDiv:          "Div",
	OpLessThan:     "LessThan",
	OpGreaterThan:  "GreaterThan",
	OpEqual:        "Equal",
	OpNotEqual:     "NotEqual",
	OpLessEqual:    "LessEqual",
	OpGreaterEqual: "GreaterEqual",
	OpJump:         "Jump",
	OpJumpIfFalse:  "JumpIfFalse",
	OpCallHost:     "CallHost",
	OpCallFunc:     "CallFunc",
	OpNewInstance:  "NewInstance",
	OpLoadAttr:     "LoadAttr",
	OpStoreAttr:    "StoreAttr",
	OpCallMethod:   "CallMethod",
	OpCallValue:    "CallValue",
	OpSpawnFunc:    "SpawnFunc",
	OpAwait:        "Await",
	OpMakeList:     "MakeList",
	OpMakeDict:     "MakeDict",
	OpSleep:        "Sleep",
	OpYield:        "Yield",
	OpReturn:       "Return",
	OpPop:          "Pop",
}

func (op Opcode) String() string {
	if n, ok := names[op]; ok {
		return n
	}
	return "Unknown"
}

// Instruction is one `(OpCode, a, b)` bytecode instruction (spec §3, §6).
type Instruction struct {
	Op Opcode
	A  int32
	B  int32
}

// StackDelta reports the net operand-stack effect of executing op, per the
// table in spec §6. CallFunc/NewInstance/SpawnFunc deliver their result on
// a later Return rather than immediately, so their immediate delta already
// accounts for popping argc and (for SpawnFunc) pushing the handle.
func StackDelta(op Opcode, a, b int32) int {
	switch op {
	case OpNop, OpJump:
		return 0
	case OpPushConst, OpLoadLocal, OpLoadName:
		return 1
	case OpStoreLocal, OpStoreName, OpJumpIfFalse:
		return -1
	case OpAdd, OpSub, OpMul, OpDiv,
		OpLessThan, OpGreaterThan, OpEqual, OpNotEqual, OpLessEqual, OpGreaterEqual:
		return -1
	case OpCallHost:
		return 1 - int(b)
	case OpCallFunc, OpNewInstance:
		return -int(b)
	case OpLoadAttr:
		return 0
	case OpStoreAttr:
		return -1
	case OpCallMethod:
		return -int(b)
	case OpCallValue:
		return -int(a)
	case OpSpawnFunc:
		return 1 - int(b)
	case OpAwait:
		return 0
	case OpMakeList:
		return 1 - int(a)
	case OpMakeDict:
		return 1 - 2*int(a)
	case OpSleep, OpYield:
		return 0
	case OpReturn:
		return -1
	case OpPop:
		return -1
	default:
		return 0
	}
}
