package chunk

import "fmt"

// Op is a single bytecode instruction opcode.
type Op uint8

//nolint:revive
const (
	OpConstant     Op = iota // const-pool index (short)
	OpConstantLong           // const-pool index (4-byte)
	OpNil
	OpTrue
	OpFalse
	OpPop
	OpGetLocal
	OpGetLocalLong
	OpSetLocal
	OpSetLocalLong
	OpGetGlobal
	OpGetGlobalLong
	OpDefineGlobal
	OpDefineGlobalLong
	OpSetGlobal
	OpSetGlobalLong
	OpGetUpvalue
	OpGetUpvalueLong
	OpSetUpvalue
	OpSetUpvalueLong
	OpEqual
	OpGreater
	OpLess
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpNot
	OpNegate
	OpPrint
	OpJump
	OpJumpIfFalse
	OpJumpIfTrue
	OpCall
	OpClosure
	OpCloseUpvalue
	OpReturn

	opMax
)

var opNames = [...]string{
	OpConstant:         "OP_CONSTANT",
	OpConstantLong:     "OP_CONSTANT_LONG",
	OpNil:              "OP_NIL",
	OpTrue:             "OP_TRUE",
	OpFalse:            "OP_FALSE",
	OpPop:              "OP_POP",
	OpGetLocal:         "OP_GET_LOCAL",
	OpGetLocalLong:     "OP_GET_LOCAL_LONG",
	OpSetLocal:         "OP_SET_LOCAL",
	OpSetLocalLong:     "OP_SET_LOCAL_LONG",
	OpGetGlobal:        "OP_GET_GLOBAL",
	OpGetGlobalLong:    "OP_GET_GLOBAL_LONG",
	OpDefineGlobal:     "OP_DEFINE_GLOBAL",
	OpDefineGlobalLong: "OP_DEFINE_GLOBAL_LONG",
	OpSetGlobal:        "OP_SET_GLOBAL",
	OpSetGlobalLong:    "OP_SET_GLOBAL_LONG",
	OpGetUpvalue:       "OP_GET_UPVALUE",
	OpGetUpvalueLong:   "OP_GET_UPVALUE_LONG",
	OpSetUpvalue:       "OP_SET_UPVALUE",
	OpSetUpvalueLong:   "OP_SET_UPVALUE_LONG",
	OpEqual:            "OP_EQUAL",
	OpGreater:          "OP_GREATER",
	OpLess:             "OP_LESS",
	OpAdd:              "OP_ADD",
	OpSubtract:         "OP_SUBTRACT",
	OpMultiply:         "OP_MULTIPLY",
	OpDivide:           "OP_DIVIDE",
	OpNot:              "OP_NOT",
	OpNegate:           "OP_NEGATE",
	OpPrint:            "OP_PRINT",
	OpJump:             "OP_JUMP",
	OpJumpIfFalse:      "OP_JUMP_IF_FALSE",
	OpJumpIfTrue:       "OP_JUMP_IF_TRUE",
	OpCall:             "OP_CALL",
	OpClosure:          "OP_CLOSURE",
	OpCloseUpvalue:     "OP_CLOSE_UPVALUE",
	OpReturn:           "OP_RETURN",
}

func (op Op) String() string {
	if op < opMax {
		if s := opNames[op]; s != "" {
			return s
		}
	}
	return fmt.Sprintf("OP_<illegal %d>", op)
}

// LongForm returns the long (4-byte operand) counterpart of a short-form
// index opcode, and whether op has one. Opcodes with no operand, or whose
// operand isn't an index (jumps, OP_CALL), return (op, false).
func (op Op) LongForm() (Op, bool) {
	switch op {
	case OpConstant:
		return OpConstantLong, true
	case OpGetLocal:
		return OpGetLocalLong, true
	case OpSetLocal:
		return OpSetLocalLong, true
	case OpGetGlobal:
		return OpGetGlobalLong, true
	case OpDefineGlobal:
		return OpDefineGlobalLong, true
	case OpSetGlobal:
		return OpSetGlobalLong, true
	case OpGetUpvalue:
		return OpGetUpvalueLong, true
	case OpSetUpvalue:
		return OpSetUpvalueLong, true
	default:
		return op, false
	}
}

// IsLong reports whether op is one of the 4-byte-operand long-form
// opcodes.
func (op Op) IsLong() bool {
	switch op {
	case OpConstantLong, OpGetLocalLong, OpSetLocalLong, OpGetGlobalLong,
		OpDefineGlobalLong, OpSetGlobalLong, OpGetUpvalueLong, OpSetUpvalueLong:
		return true
	default:
		return false
	}
}

// IsJump reports whether op takes a 2-byte signed relative jump operand.
func (op Op) IsJump() bool {
	switch op {
	case OpJump, OpJumpIfFalse, OpJumpIfTrue:
		return true
	default:
		return false
	}
}
