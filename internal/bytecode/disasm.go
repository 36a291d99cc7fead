package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a deterministic textual listing of the chunk.
// Function constants are listed recursively after the outer chunk so the
// output covers everything a closure can reach.
func Disassemble(chunk *Chunk, name string) string {
	var sb strings.Builder
	disassembleChunk(&sb, chunk, name)
	return sb.String()
}

func disassembleChunk(sb *strings.Builder, chunk *Chunk, name string) {
	fmt.Fprintf(sb, "== %s ==\n", name)

	offset := 0
	for offset < len(chunk.Code) {
		offset = disassembleInstruction(sb, chunk, offset)
	}

	for _, k := range chunk.Constants {
		if fn, ok := k.(*Function); ok {
			disassembleChunk(sb, fn.Chunk, fn.Name)
		}
	}
}

func disassembleInstruction(sb *strings.Builder, chunk *Chunk, offset int) int {
	fmt.Fprintf(sb, "%04d ", offset)
	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		sb.WriteString("   | ")
	} else {
		fmt.Fprintf(sb, "%4d ", chunk.Lines[offset])
	}

	op := Op(chunk.Code[offset])
	switch op {
	case OpConstant, OpDefineGlobal, OpGetGlobal, OpSetGlobal,
		OpClass, OpGetProperty, OpSetProperty, OpMethod, OpGetSuper:
		return constantInstruction(sb, op, chunk, offset)

	case OpGetLocal, OpSetLocal, OpGetUpvalue, OpSetUpvalue, OpCall:
		return byteInstruction(sb, op, chunk, offset)

	case OpJump, OpJumpIfFalse:
		return jumpInstruction(sb, op, 1, chunk, offset)
	case OpLoop:
		return jumpInstruction(sb, op, -1, chunk, offset)

	case OpInvoke, OpSuperInvoke:
		return invokeInstruction(sb, op, chunk, offset)

	case OpClosure:
		return closureInstruction(sb, chunk, offset)

	case OpBuildList:
		n := chunk.ReadU16(offset + 1)
		fmt.Fprintf(sb, "%-16s %4d\n", op, n)
		return offset + 3

	default:
		fmt.Fprintf(sb, "%s\n", op)
		return offset + 1
	}
}

func constantInstruction(sb *strings.Builder, op Op, chunk *Chunk, offset int) int {
	idx := chunk.ReadU16(offset + 1)
	fmt.Fprintf(sb, "%-16s %4d %s\n", op, idx, chunk.Constants[idx])
	return offset + 3
}

func byteInstruction(sb *strings.Builder, op Op, chunk *Chunk, offset int) int {
	fmt.Fprintf(sb, "%-16s %4d\n", op, chunk.Code[offset+1])
	return offset + 2
}

func jumpInstruction(sb *strings.Builder, op Op, sign int, chunk *Chunk, offset int) int {
	jump := chunk.ReadU16(offset + 1)
	fmt.Fprintf(sb, "%-16s %4d -> %d\n", op, offset, offset+3+sign*jump)
	return offset + 3
}

func invokeInstruction(sb *strings.Builder, op Op, chunk *Chunk, offset int) int {
	idx := chunk.ReadU16(offset + 1)
	argc := chunk.Code[offset+3]
	fmt.Fprintf(sb, "%-16s (%d args) %4d %s\n", op, argc, idx, chunk.Constants[idx])
	return offset + 4
}

func closureInstruction(sb *strings.Builder, chunk *Chunk, offset int) int {
	idx := chunk.ReadU16(offset + 1)
	fmt.Fprintf(sb, "%-16s %4d %s\n", OpClosure, idx, chunk.Constants[idx])
	offset += 3

	fn, ok := chunk.Constants[idx].(*Function)
	if !ok {
		return offset
	}
	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := chunk.Code[offset]
		index := chunk.Code[offset+1]
		kind := "upvalue"
		if isLocal == 1 {
			kind = "local"
		}
		fmt.Fprintf(sb, "%04d    |                     %s %d\n", offset, kind, index)
		offset += 2
	}
	return offset
}
