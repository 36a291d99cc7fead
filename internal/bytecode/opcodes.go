// Package bytecode defines the instruction set, the chunk format and the
// disassembler for compiled functions.
package bytecode

// Op is a single VM instruction. Operands follow the opcode byte in the
// chunk's code stream:
//
//	u16 constant index   Constant, DefineGlobal, GetGlobal, SetGlobal,
//	                     Class, GetProperty, SetProperty, Method, GetSuper
//	u8 slot              GetLocal, SetLocal, GetUpvalue, SetUpvalue
//	u16 jump offset      Jump, JumpIfFalse, Loop
//	u8 argument count    Call
//	u16 name + u8 argc   Invoke, SuperInvoke
//	u16 element count    BuildList
//	u16 constant index,
//	then per captured upvalue a (u8 isLocal, u8 index) pair
//	                     Closure
type Op byte

const (
	OpReturn Op = iota
	OpConstant
	OpNil
	OpTrue
	OpFalse
	OpNegate
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpNot
	OpEqual
	OpGreater
	OpLess
	OpPrint
	OpPop
	OpDefineGlobal
	OpGetGlobal
	OpSetGlobal
	OpGetLocal
	OpSetLocal
	OpGetUpvalue
	OpSetUpvalue
	OpJumpIfFalse
	OpJump
	OpLoop
	OpCall
	OpClosure
	OpCloseUpvalue
	OpClass
	OpSetProperty
	OpGetProperty
	OpMethod
	OpInvoke
	OpInherit
	OpGetSuper
	OpSuperInvoke
	OpBuildList
	OpSubscript
	OpSetItem
)

var opNames = [...]string{
	OpReturn:       "RETURN",
	OpConstant:     "CONSTANT",
	OpNil:          "NIL",
	OpTrue:         "TRUE",
	OpFalse:        "FALSE",
	OpNegate:       "NEGATE",
	OpAdd:          "ADD",
	OpSubtract:     "SUBTRACT",
	OpMultiply:     "MULTIPLY",
	OpDivide:       "DIVIDE",
	OpNot:          "NOT",
	OpEqual:        "EQUAL",
	OpGreater:      "GREATER",
	OpLess:         "LESS",
	OpPrint:        "PRINT",
	OpPop:          "POP",
	OpDefineGlobal: "DEFINE_GLOBAL",
	OpGetGlobal:    "GET_GLOBAL",
	OpSetGlobal:    "SET_GLOBAL",
	OpGetLocal:     "GET_LOCAL",
	OpSetLocal:     "SET_LOCAL",
	OpGetUpvalue:   "GET_UPVALUE",
	OpSetUpvalue:   "SET_UPVALUE",
	OpJumpIfFalse:  "JUMP_IF_FALSE",
	OpJump:         "JUMP",
	OpLoop:         "LOOP",
	OpCall:         "CALL",
	OpClosure:      "CLOSURE",
	OpCloseUpvalue: "CLOSE_UPVALUE",
	OpClass:        "CLASS",
	OpSetProperty:  "SET_PROPERTY",
	OpGetProperty:  "GET_PROPERTY",
	OpMethod:       "METHOD",
	OpInvoke:       "INVOKE",
	OpInherit:      "INHERIT",
	OpGetSuper:     "GET_SUPER",
	OpSuperInvoke:  "SUPER_INVOKE",
	OpBuildList:    "BUILD_LIST",
	OpSubscript:    "SUBSCRIPT",
	OpSetItem:      "SET_ITEM",
}

func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return "UNKNOWN"
}
