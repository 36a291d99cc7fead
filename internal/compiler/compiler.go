// Package compiler is a single-pass Pratt parser that consumes the token
// stream and emits chunk bytecode directly; no syntax tree is built.
// Nesting lives in parser state: a chain of per-function compilers for
// local/upvalue resolution and a chain of class compilers for this/super.
package compiler

import (
	"fmt"

	"github.com/qalam-lang/qalam/internal/bytecode"
	"github.com/qalam-lang/qalam/internal/config"
	"github.com/qalam-lang/qalam/internal/lexer"
	"github.com/qalam-lang/qalam/internal/token"
)

// ErrorKind classifies compile-time errors.
type ErrorKind int

const (
	Lexical ErrorKind = iota
	Parse
	Semantic
	Internal
)

func (k ErrorKind) String() string {
	switch k {
	case Lexical:
		return "lexical"
	case Parse:
		return "parse"
	case Semantic:
		return "semantic"
	default:
		return "internal"
	}
}

// Error is a compile-time error with the position of the offending token.
type Error struct {
	Kind ErrorKind
	What string
	Line int
	Col  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error [line %d:%d]: %s", e.Kind, e.Line, e.Col, e.What)
}

// Compile turns source text into the top-level function prototype. The
// top-level function has the empty name and arity 0.
func Compile(source string, dialect config.Dialect, ext config.Extensions) (*bytecode.Function, *Error) {
	tokens, lexErr := lexer.Scan(source, dialect)
	if lexErr != nil {
		return nil, &Error{Kind: Lexical, What: lexErr.What, Line: lexErr.Line, Col: lexErr.Col}
	}

	p := &parser{
		tokens:  tokens,
		dialect: dialect,
		ext:     ext,
	}
	p.compiler = newFuncCompiler(nil, "", kindScript)

	for !p.match(token.EOF) {
		if err := p.declaration(); err != nil {
			return nil, err
		}
	}

	fn, _ := p.endCompiler()
	return fn, nil
}

// initNameFor is the constructor method name in each dialect.
func initNameFor(d config.Dialect) string {
	if d == config.Arabic {
		return "تهيئة"
	}
	return "init"
}

type funcKind int

const (
	kindScript funcKind = iota
	kindFunction
	kindMethod
	kindInitializer
	kindLambda
)

const maxLocals = 256
const maxUpvalues = 256

// local is one slot of the compiling function's frame. depth is -1 between
// declaration and definition so a read inside the initializer is caught.
type local struct {
	name       string
	depth      int
	isCaptured bool
}

// upvalueRef is a compile-time upvalue descriptor, emitted verbatim after
// the CLOSURE opcode.
type upvalueRef struct {
	index   byte
	isLocal bool
}

// funcCompiler owns the function prototype under construction plus its
// locals and upvalue tables. Slot 0 is reserved for the callee (named
// "this" inside methods so the receiver resolves like a local).
type funcCompiler struct {
	enclosing  *funcCompiler
	function   *bytecode.Function
	kind       funcKind
	locals     []local
	upvalues   []upvalueRef
	scopeDepth int
}

func newFuncCompiler(enclosing *funcCompiler, name string, kind funcKind) *funcCompiler {
	c := &funcCompiler{
		enclosing: enclosing,
		function:  &bytecode.Function{Name: name, Chunk: bytecode.NewChunk()},
		kind:      kind,
		locals:    make([]local, 0, 8),
	}
	slotZero := ""
	if kind == kindMethod || kind == kindInitializer {
		slotZero = "this"
	}
	c.locals = append(c.locals, local{name: slotZero, depth: 0})
	return c
}

// classCompiler tracks the innermost class declaration being compiled.
type classCompiler struct {
	enclosing     *classCompiler
	hasSuperclass bool
}

type parser struct {
	tokens   []token.Token
	current  int
	dialect  config.Dialect
	ext      config.Extensions
	compiler *funcCompiler
	class    *classCompiler
}

// cur and prev clamp to the trailing EOF token, so running off the end of
// the stream parses as a run of EOFs instead of indexing out of range.
func (p *parser) cur() token.Token {
	if p.current >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.current]
}

func (p *parser) prev() token.Token {
	i := p.current - 1
	if i < 0 {
		i = 0
	}
	if i >= len(p.tokens) {
		i = len(p.tokens) - 1
	}
	return p.tokens[i]
}

func (p *parser) advance() {
	if p.current < len(p.tokens) {
		p.current++
	}
}

func (p *parser) check(ty token.Type) bool {
	return p.cur().Type == ty
}

func (p *parser) match(ty token.Type) bool {
	if !p.check(ty) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) consume(ty token.Type, msg string) *Error {
	if p.check(ty) {
		p.advance()
		return nil
	}
	return p.errorAtCurrent(Parse, msg)
}

func (p *parser) errorAt(tok token.Token, kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, What: fmt.Sprintf(format, args...), Line: tok.Line, Col: tok.Col}
}

func (p *parser) errorAtCurrent(kind ErrorKind, format string, args ...any) *Error {
	return p.errorAt(p.cur(), kind, format, args...)
}

func (p *parser) errorAtPrev(kind ErrorKind, format string, args ...any) *Error {
	return p.errorAt(p.prev(), kind, format, args...)
}

// chunk is the chunk of the function currently being compiled.
func (p *parser) chunk() *bytecode.Chunk {
	return p.compiler.function.Chunk
}

func (p *parser) emit(op bytecode.Op) {
	p.chunk().WriteOp(op, p.prev().Line)
}

func (p *parser) emitByte(b byte) {
	p.chunk().Write(b, p.prev().Line)
}

func (p *parser) emitU16(v int) {
	p.chunk().WriteU16(v, p.prev().Line)
}

func (p *parser) emitConstantOp(op bytecode.Op, idx int) {
	p.emit(op)
	p.emitU16(idx)
}

// emitJump writes a jump with a placeholder operand and returns the operand
// offset for patchJump.
func (p *parser) emitJump(op bytecode.Op) int {
	p.emit(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return len(p.chunk().Code) - 2
}

func (p *parser) patchJump(operand int) *Error {
	jump := len(p.chunk().Code) - operand - 2
	if jump > 0xffff {
		return p.errorAtPrev(Internal, "Too much code to jump over.")
	}
	p.chunk().Code[operand] = byte(jump >> 8)
	p.chunk().Code[operand+1] = byte(jump)
	return nil
}

func (p *parser) emitLoop(loopStart int) *Error {
	p.emit(bytecode.OpLoop)
	offset := len(p.chunk().Code) - loopStart + 2
	if offset > 0xffff {
		return p.errorAtPrev(Internal, "Loop body too large.")
	}
	p.emitU16(offset)
	return nil
}

// emitReturn ends a function body: initializers return the receiver,
// everything else returns nil.
func (p *parser) emitReturn() {
	if p.compiler.kind == kindInitializer {
		p.emit(bytecode.OpGetLocal)
		p.emitByte(0)
	} else {
		p.emit(bytecode.OpNil)
	}
	p.emit(bytecode.OpReturn)
}

// endCompiler finishes the current function and pops back to the enclosing
// one. Returns the prototype and its upvalue descriptors.
func (p *parser) endCompiler() (*bytecode.Function, []upvalueRef) {
	p.emitReturn()
	c := p.compiler
	c.function.UpvalueCount = len(c.upvalues)
	p.compiler = c.enclosing
	return c.function, c.upvalues
}

func (p *parser) beginScope() {
	p.compiler.scopeDepth++
}

// endScope pops every local of the closing scope: captured ones are lifted
// off the stack with CLOSE_UPVALUE, the rest with POP.
func (p *parser) endScope() {
	c := p.compiler
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.scopeDepth {
		if c.locals[len(c.locals)-1].isCaptured {
			p.emit(bytecode.OpCloseUpvalue)
		} else {
			p.emit(bytecode.OpPop)
		}
		c.locals = c.locals[:len(c.locals)-1]
	}
}

// identifierConstant interns name in the current chunk's constant pool.
func (p *parser) identifierConstant(name string) int {
	return p.chunk().AddString(name)
}

func (p *parser) addLocal(name string) *Error {
	c := p.compiler
	if len(c.locals) >= maxLocals {
		return p.errorAtPrev(Parse, "Too many local variables in function.")
	}
	c.locals = append(c.locals, local{name: name, depth: -1})
	return nil
}

// declareVariable records a new local in the current scope; at top level
// globals are late-bound and nothing is recorded.
func (p *parser) declareVariable() *Error {
	c := p.compiler
	if c.scopeDepth == 0 {
		return nil
	}
	name := p.prev().Text
	for i := len(c.locals) - 1; i >= 0; i-- {
		l := c.locals[i]
		if l.depth != -1 && l.depth < c.scopeDepth {
			break
		}
		if l.name == name {
			return p.errorAtPrev(Semantic, "Redeclaration of variable '%s'.", name)
		}
	}
	return p.addLocal(name)
}

// parseVariable consumes a variable name and declares it; the returned
// constant index is meaningful only for globals.
func (p *parser) parseVariable(msg string) (int, *Error) {
	if err := p.consume(token.Identifier, msg); err != nil {
		return 0, err
	}
	if err := p.declareVariable(); err != nil {
		return 0, err
	}
	if p.compiler.scopeDepth > 0 {
		return 0, nil
	}
	return p.identifierConstant(p.prev().Text), nil
}

func (p *parser) markInitialized() {
	c := p.compiler
	if c.scopeDepth == 0 {
		return
	}
	c.locals[len(c.locals)-1].depth = c.scopeDepth
}

func (p *parser) defineVariable(global int) {
	if p.compiler.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitConstantOp(bytecode.OpDefineGlobal, global)
}

// resolveLocal finds name among c's locals, innermost first. Returns -1
// when the name is not a local.
func (p *parser) resolveLocal(c *funcCompiler, name string) (int, *Error) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			if c.locals[i].depth == -1 {
				return -1, p.errorAtPrev(Semantic, "Cannot read local variable in its own initializer.")
			}
			return i, nil
		}
	}
	return -1, nil
}

// resolveUpvalue walks outward through the enclosing compilers. A match in
// an enclosing function's locals is captured there and threaded inward
// through every intermediate function's upvalue table.
func (p *parser) resolveUpvalue(c *funcCompiler, name string) (int, *Error) {
	if c.enclosing == nil {
		return -1, nil
	}

	slot, err := p.resolveLocal(c.enclosing, name)
	if err != nil {
		return -1, err
	}
	if slot != -1 {
		c.enclosing.locals[slot].isCaptured = true
		return p.addUpvalue(c, byte(slot), true)
	}

	up, err := p.resolveUpvalue(c.enclosing, name)
	if err != nil {
		return -1, err
	}
	if up != -1 {
		return p.addUpvalue(c, byte(up), false)
	}
	return -1, nil
}

func (p *parser) addUpvalue(c *funcCompiler, index byte, isLocal bool) (int, *Error) {
	for i, uv := range c.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i, nil
		}
	}
	if len(c.upvalues) >= maxUpvalues {
		return -1, p.errorAtPrev(Parse, "Too many closure variables in function.")
	}
	c.upvalues = append(c.upvalues, upvalueRef{index: index, isLocal: isLocal})
	return len(c.upvalues) - 1, nil
}

// namedVariable emits the get (or, after '=', the set) for a resolved name:
// local slot, upvalue index or interned global.
func (p *parser) namedVariable(name string, canAssign bool) *Error {
	var getOp, setOp bytecode.Op
	var arg int
	wide := false

	slot, err := p.resolveLocal(p.compiler, name)
	if err != nil {
		return err
	}
	if slot != -1 {
		getOp, setOp, arg = bytecode.OpGetLocal, bytecode.OpSetLocal, slot
	} else {
		up, err := p.resolveUpvalue(p.compiler, name)
		if err != nil {
			return err
		}
		if up != -1 {
			getOp, setOp, arg = bytecode.OpGetUpvalue, bytecode.OpSetUpvalue, up
		} else {
			getOp, setOp, arg = bytecode.OpGetGlobal, bytecode.OpSetGlobal, p.identifierConstant(name)
			wide = true
		}
	}

	op := getOp
	if canAssign && p.match(token.Equal) {
		if err := p.expression(); err != nil {
			return err
		}
		op = setOp
	}
	p.emit(op)
	if wide {
		p.emitU16(arg)
	} else {
		p.emitByte(byte(arg))
	}
	return nil
}
