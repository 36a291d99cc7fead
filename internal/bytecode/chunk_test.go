package bytecode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qalam-lang/qalam/internal/bytecode"
)

func TestWriteAndReadU16(t *testing.T) {
	c := bytecode.NewChunk()
	c.WriteOp(bytecode.OpConstant, 1)
	c.WriteU16(0xabcd, 1)

	assert.Equal(t, 0xabcd, c.ReadU16(1))
	assert.Equal(t, []int{1, 1, 1}, c.Lines)
}

func TestNumberConstantsDeduplicate(t *testing.T) {
	c := bytecode.NewChunk()
	a := c.AddNumber(2)
	b := c.AddNumber(2)
	d := c.AddNumber(3)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, d)
	assert.Len(t, c.Constants, 2)
}

func TestStringConstantsDeduplicate(t *testing.T) {
	c := bytecode.NewChunk()
	a := c.AddString("x")
	b := c.AddString("x")
	d := c.AddString("y")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, d)

	s, ok := c.StringAt(a)
	require.True(t, ok)
	assert.Equal(t, "x", s)

	_, ok = c.StringAt(99)
	assert.False(t, ok)
}

func TestStringAtRejectsNonStrings(t *testing.T) {
	c := bytecode.NewChunk()
	idx := c.AddNumber(1)
	_, ok := c.StringAt(idx)
	assert.False(t, ok)
}

func TestDisassembleSimpleChunk(t *testing.T) {
	c := bytecode.NewChunk()
	idx := c.AddNumber(2)
	c.WriteOp(bytecode.OpConstant, 1)
	c.WriteU16(idx, 1)
	c.WriteOp(bytecode.OpNil, 2)
	c.WriteOp(bytecode.OpReturn, 2)

	dis := bytecode.Disassemble(c, "test")
	assert.Contains(t, dis, "== test ==")
	assert.Contains(t, dis, "CONSTANT")
	assert.Contains(t, dis, "NIL")
	assert.Contains(t, dis, "RETURN")
	// Repeated line numbers collapse to a continuation marker.
	assert.Contains(t, dis, "   | ")
}

func TestFunctionConstantStringer(t *testing.T) {
	fn := &bytecode.Function{Name: "f", Chunk: bytecode.NewChunk()}
	assert.Equal(t, "<fn f>", fn.String())
	assert.Equal(t, `"s"`, bytecode.String("s").String())
	assert.Equal(t, "2", bytecode.Number(2).String())
}
